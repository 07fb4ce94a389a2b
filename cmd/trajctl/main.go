// Command trajctl runs a trajectory-following controller over a Feetech servo
// bus, or over in-memory joints when no bus is configured, and optionally
// publishes state snapshots to MQTT.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go.viam.com/trajctl/adapter"
	"go.viam.com/trajctl/controller"
	"go.viam.com/trajctl/hardware/fake"
	"go.viam.com/trajctl/hardware/feetech"
	"go.viam.com/trajctl/statemqtt"
)

type appConfig struct {
	Controller controller.Config `yaml:"controller"`
	Bus        *feetech.Config   `yaml:"bus"`
	MQTT       *statemqtt.Config `yaml:"mqtt"`
}

func main() {
	var configPath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "trajctl",
		Short: "Run a multi-joint trajectory-following controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := golog.NewDevelopmentLogger("trajctl")
			if debug {
				logger = golog.NewDebugLogger("trajctl")
			}
			return run(configPath, logger)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := rootCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, logger golog.Logger) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read configuration")
	}
	var cfg appConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return errors.Wrap(err, "failed to parse configuration")
	}

	clk := clock.New()
	ctx := context.Background()

	var joints []controller.JointHandle
	var ad controller.CommandAdapter
	if cfg.Bus != nil {
		arm, err := feetech.Open(*cfg.Bus, clk, logger.Named("bus"))
		if err != nil {
			return err
		}
		defer func() {
			if err := arm.Close(); err != nil {
				logger.Errorw("failed to close servo bus", "error", err)
			}
		}()
		if err := arm.Enable(ctx); err != nil {
			return errors.Wrap(err, "failed to enable servo torque")
		}
		defer func() {
			if err := arm.Disable(ctx); err != nil {
				logger.Errorw("failed to disable servo torque", "error", err)
			}
		}()

		cmds := make([]adapter.JointCommander, 0, len(arm.Joints()))
		for _, j := range arm.Joints() {
			joints = append(joints, j)
			cmds = append(cmds, j)
		}
		ad, err = adapter.NewPosition(cmds)
		if err != nil {
			return err
		}
		logger.Infow("servo bus opened", "port", cfg.Bus.Port, "joints", arm.JointNames())
	} else {
		// No bus configured: simulate with in-memory joints that track the
		// desired state perfectly.
		fakes := make([]*fake.Joint, len(cfg.Controller.Joints))
		for i := range fakes {
			fakes[i] = fake.NewJoint(0)
			joints = append(joints, fakes[i])
		}
		ad = fake.NewTrackingAdapter(fakes)
		logger.Info("no servo bus configured, running with simulated joints")
	}

	c, err := controller.New(cfg.Controller, controller.Deps{
		Joints:  joints,
		Adapter: ad,
		Clock:   clk,
	}, logger)
	if err != nil {
		return err
	}
	if err := c.Run(); err != nil {
		return err
	}
	defer c.Stop()
	logger.Infow("controller running", "name", c.Name(), "period", c.Period())

	if cfg.MQTT != nil {
		pub, err := statemqtt.NewPublisher(*cfg.MQTT, c, clk, logger.Named("mqtt"))
		if err != nil {
			return err
		}
		pub.Start()
		defer pub.Close()
		logger.Infow("publishing state snapshots", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infow("shutting down", "signal", sig)
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service [install|uninstall|start|stop|run]",
	Short: "Manage the monitor as an OS service",
	Long: `Install, remove, or control the monitor as an OS service (Windows
service or systemd unit) so it starts at boot under an account the
supervised user cannot control. "run" is what the service manager
invokes and is not normally run by hand.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "start", "stop", "run"},
	RunE:      runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
}

// program adapts the monitor to the service lifecycle: Start kicks the
// loop off in the background, Stop cancels it and waits.
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		_ = runMonitorContext(ctx)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	<-p.done
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	svcConfig := &service.Config{
		Name:        "kwatch",
		DisplayName: "KWatch screen time monitor",
		Description: "Enforces the daily screen time budget for a supervised account.",
		Arguments:   []string{"service", "run", "--config", configPath},
	}

	prg := &program{}
	svc, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	action := args[0]
	if action == "run" {
		return svc.Run()
	}

	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("service %s failed: %w", action, err)
	}

	fmt.Printf("Service %s: done\n", action)
	return nil
}

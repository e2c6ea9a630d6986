package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// serveProgram adapts runServe to the kardianos/service.Interface the
// OS service manager drives — the same program/Start/Stop shape the
// teacher's folder-watcher service uses, pointed at our HTTP/job-
// processor bootstrap instead of a filesystem watch loop.
type serveProgram struct{}

func (p *serveProgram) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *serveProgram) run() {
	runServe()
}

func (p *serveProgram) Stop(s service.Service) error {
	return nil
}

func serviceConfig() *service.Config {
	ex, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}
	return &service.Config{
		Name:        "voicecore",
		DisplayName: "voicecore",
		Description: "Audio ingestion, transcription, and daily-summary core.",
		Executable:  ex,
		Arguments:   []string{"serve"},
	}
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install voicecore as a background OS service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := service.New(&serveProgram{}, serviceConfig())
		if err != nil {
			log.Fatal(err)
		}
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		fmt.Println("Service installed successfully.")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the voicecore background service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := service.New(&serveProgram{}, serviceConfig())
		if err != nil {
			log.Fatal(err)
		}
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled.")
	},
}

var serviceStartCmd = &cobra.Command{
	Use:   "service-start",
	Short: "Start the installed voicecore service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := service.New(&serveProgram{}, serviceConfig())
		if err != nil {
			log.Fatal(err)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started.")
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "service-stop",
	Short: "Stop the installed voicecore service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := service.New(&serveProgram{}, serviceConfig())
		if err != nil {
			log.Fatal(err)
		}
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped.")
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(serviceStartCmd)
	rootCmd.AddCommand(serviceStopCmd)
}

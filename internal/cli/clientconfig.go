package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// clientConfig holds the settings the "watch" client subcommand needs
// to reach a running voicecore server, persisted the same way the
// teacher's CLI persists its own server_url/token/watch_folder trio.
type clientConfig struct {
	ServerURL   string `mapstructure:"server_url"`
	Token       string `mapstructure:"token"`
	WatchFolder string `mapstructure:"watch_folder"`
}

func initClientConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Println(err)
		return
	}

	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(".voicecore")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func saveClientConfig(serverURL, token, watchFolder string) error {
	if serverURL != "" {
		viper.Set("server_url", serverURL)
	}
	if token != "" {
		viper.Set("token", token)
	}
	if watchFolder != "" {
		viper.Set("watch_folder", watchFolder)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.WriteConfigAs(home + "/.voicecore.yaml")
}

func getClientConfig() *clientConfig {
	return &clientConfig{
		ServerURL:   viper.GetString("server_url"),
		Token:       viper.GetString("token"),
		WatchFolder: viper.GetString("watch_folder"),
	}
}

package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/configuration"
	"github.com/buzzwatch/buzzwatch/internal/common"
	"github.com/buzzwatch/buzzwatch/internal/common/app"
)

const CustomConfigLocation string = "config"

func init() {
	pflag.StringSlice(CustomConfigLocation, []string{}, "Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.BuzzwatchConfiguration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)
	common.LoadConfig(&config, "./config/buzzwatch", userSpecifiedConfigs)

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := buzzwatch.Run(app.CreateContextWithShutdown(), &config); err != nil {
		log.Fatalf("Ingester failed: %v", err)
	}
}

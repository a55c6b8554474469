package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var Conf = config{}

type config struct {
	ETL        ETLConfig        `mapstructure:"etl" yaml:"etl"`
	Postgresql PostgresqlConfig `mapstructure:"postgresql" yaml:"postgresql"`
}

type ETLConfig struct {
	ProviderURL    string `mapstructure:"provider_url" yaml:"provider_url"`
	NetworkLabel   string `mapstructure:"network_label" yaml:"network_label"`
	LogPath        string `mapstructure:"log_path" yaml:"log_path"`
	ClientMaxConns int    `mapstructure:"client_max_conns" yaml:"client_max_conns"`
}

type PostgresqlConfig struct {
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	Database     string `mapstructure:"database" yaml:"database"`
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	LogMode      bool   `mapstructure:"log-mode" yaml:"log-mode"`
	MaxIdleConns int    `mapstructure:"max-idle-conns" yaml:"max-idle-conns"`
	MaxOpenConns int    `mapstructure:"max-open-conns" yaml:"max-open-conns"`
}

func SetupConfig(configFile string) {
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("failed to read configuration file: %v", err))
	}
	// load config info to global Config variable
	if err = viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("failed to unmarshal configuration file %v", err))
	}

	logrus.Infof("read configuration file successfully")
}

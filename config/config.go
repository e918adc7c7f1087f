package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// GameConfig holds the tuning values for every room. The defaults mirror
// the classic 800x600 map with a quarter of the lobby as impostors.
type GameConfig struct {
	MinPlayers       int           `mapstructure:"min_players"`
	MaxPlayers       int           `mapstructure:"max_players"`
	ImpostorRatio    float64       `mapstructure:"impostor_ratio"`
	KillRange        float64       `mapstructure:"kill_range"`
	TaskRange        float64       `mapstructure:"task_range"`
	TasksPerCrewmate int           `mapstructure:"tasks_per_crewmate"`
	MapWidth         float64       `mapstructure:"map_width"`
	MapHeight        float64       `mapstructure:"map_height"`
	MapMargin        float64       `mapstructure:"map_margin"`
	MeetingTimeout   time.Duration `mapstructure:"meeting_timeout"`
	RoomInactiveTTL  time.Duration `mapstructure:"room_inactive_ttl"`
	ReapInterval     time.Duration `mapstructure:"reap_interval"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"` // "gorm" or "pq"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")

	viper.SetDefault("game.min_players", 2)
	viper.SetDefault("game.max_players", 10)
	viper.SetDefault("game.impostor_ratio", 0.25)
	viper.SetDefault("game.kill_range", 50.0)
	viper.SetDefault("game.task_range", 40.0)
	viper.SetDefault("game.tasks_per_crewmate", 5)
	viper.SetDefault("game.map_width", 800.0)
	viper.SetDefault("game.map_height", 600.0)
	viper.SetDefault("game.map_margin", 20.0)
	viper.SetDefault("game.meeting_timeout", 45*time.Second)
	viper.SetDefault("game.room_inactive_ttl", 30*time.Minute)
	viper.SetDefault("game.reap_interval", 5*time.Minute)

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.driver", "gorm")
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// A missing file is fine, defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}

package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Address            string
		DebugHost          string
		Host               string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	adminConfig struct {
		Username string
		Password string
	}

	dbConfig struct {
		Engine        string // postgres | sqlite3 | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	mongoConfig struct {
		URI      string
		Database string
	}

	notificationConfig struct {
		Timezone   string
		Spec       string
		Recipients string // comma separated list of addresses
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server       serverConfig
		Admin        adminConfig
		Database     dbConfig
		Mongo        mongoConfig
		Notification notificationConfig
	}
)

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("secretKey", "n8^v2k$w!c3o%r7=qz&jd0(e#m5xh+t6(u@yb1)gf4ls9pa")
	v.SetDefault("defaultFromEmail", "Ratiba <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "admin")

	v.SetDefault("database.engine", "sqlite3")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ratiba")
	v.SetDefault("database.user", "ratiba")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "ratiba.db")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "ratiba")

	v.SetDefault("notification.timezone", "Africa/Nairobi")
	v.SetDefault("notification.spec", "0 6 * * *")
	v.SetDefault("notification.recipients", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	conf.Server = serverConfig{
		Address:            v.GetString("server.address"),
		DebugHost:          v.GetString("server.debugHost"),
		Host:               v.GetString("server.host"),
		ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
		JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
	}
	conf.Admin = adminConfig{
		Username: v.GetString("admin.username"),
		Password: v.GetString("admin.password"),
	}
	conf.Database = dbConfig{
		Engine:        v.GetString("database.engine"),
		Host:          v.GetString("database.host"),
		Port:          v.GetInt("database.port"),
		Name:          v.GetString("database.name"),
		User:          v.GetString("database.user"),
		Password:      v.GetString("database.password"),
		AdminUser:     v.GetString("database.adminUser"),
		AdminPassword: v.GetString("database.adminPassword"),
		DisableTLS:    v.GetBool("database.disableTLS"),
		Path:          v.GetString("database.path"),
	}
	conf.Mongo = mongoConfig{
		URI:      v.GetString("mongo.uri"),
		Database: v.GetString("mongo.database"),
	}
	conf.Notification = notificationConfig{
		Timezone:   v.GetString("notification.timezone"),
		Spec:       v.GetString("notification.spec"),
		Recipients: v.GetString("notification.recipients"),
	}
	return conf
}

// DefaultFromEmail parses the configured sender, falling back to a bare address.
func (conf *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(conf.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

func (conf *Config) SetDefaultFromEmail(addr string) { conf.defaultFromEmail = addr }

// Location loads the time zone notifications are computed and scheduled in.
func (conf *Config) Location() (*time.Location, error) {
	if conf.Notification.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(conf.Notification.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading time zone %q", conf.Notification.Timezone)
	}
	return loc, nil
}

func (conf *Config) NotificationRecipients() ([]mail.Address, error) {
	if strings.TrimSpace(conf.Notification.Recipients) == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(conf.Notification.Recipients)
	if err != nil {
		return nil, errors.Wrap(err, "parsing notification recipients")
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs, nil
}

func (db dbConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

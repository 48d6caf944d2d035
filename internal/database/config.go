package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// DefaultPoolSize is the number of connections a Pool keeps open.
const DefaultPoolSize = 5

// Config identifies one database and the account used to reach it.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	PoolSize int32
}

// ConnString renders the config as a postgres:// URL.
func (c Config) ConnString() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// WithDatabase returns a copy of c pointed at another database.
func (c Config) WithDatabase(name string) Config {
	c.Database = name
	return c
}

// WithCredentials returns a copy of c that logs in as another account.
func (c Config) WithCredentials(user, password string) Config {
	c.User = user
	c.Password = password
	return c
}

// String omits the password.
func (c Config) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

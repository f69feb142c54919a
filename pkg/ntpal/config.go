package ntpal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Servers []ServerConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	Version Version
	Timeout time.Duration
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

const defaultTimeout = 5 * time.Second

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config at %s: %w", path, err)
	}
	defer file.Close()

	return ParseConfig(file)
}

// ParseConfig reads ntp.conf style lines:
//
//	server <host> [port N] [version 3|4] [timeout DURATION]
//
// Blank lines and lines starting with # are skipped.
func ParseConfig(r io.Reader) (*Config, error) {
	config := &Config{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		arguments := strings.Fields(scanner.Text())
		if len(arguments) == 0 || strings.HasPrefix(arguments[0], "#") {
			continue
		}

		switch arguments[0] {
		case "server":
			server, err := parseServer(line, arguments)
			if err != nil {
				return nil, err
			}
			config.Servers = append(config.Servers, server)
		default:
			return nil, configParseError(line, "invalid command: ", arguments[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return config, nil
}

func parseServer(line int, arguments []string) (ServerConfig, error) {
	if len(arguments) < 2 {
		return ServerConfig{}, configParseError(line, "missing required argument \"address\"")
	}

	port, err := integerArgument(line, "port", DefaultPort, &arguments)
	if err != nil {
		return ServerConfig{}, err
	}
	version, err := integerArgument(line, "version", int(Version4), &arguments)
	if err != nil {
		return ServerConfig{}, err
	}
	timeoutStr, err := stringArgument(line, "timeout", defaultTimeout.String(), &arguments)
	if err != nil {
		return ServerConfig{}, err
	}

	if len(arguments) > 2 {
		return ServerConfig{}, configParseError(line, "invalid arguments supplied to command, one was: ", strconv.Quote(arguments[2]))
	}

	if port < 1 || port > 65535 {
		return ServerConfig{}, configParseError(line, "port must be between 1 and 65535")
	}
	if version < 0 || version > 255 || !Version(version).Valid() {
		return ServerConfig{}, configParseError(line, "only NTP versions 3 and 4 are supported")
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return ServerConfig{}, configParseError(line, "timeout requires a positive duration")
	}

	return ServerConfig{
		Host:    arguments[1],
		Port:    port,
		Version: Version(version),
		Timeout: timeout,
	}, nil
}

func integerArgument(line int, name string, initial int, arguments *[]string) (int, error) {
	valueStr, err := stringArgument(line, name, strconv.Itoa(initial), arguments)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, configParseError(line, name, " argument requires an integer value")
	}

	return value, nil
}

// stringArgument consumes "name value" from arguments, skipping the command
// and host in the first two positions.
func stringArgument(line int, name string, initial string, arguments *[]string) (string, error) {
	for i := 2; i < len(*arguments); i++ {
		if (*arguments)[i] != name {
			continue
		}
		if i == len(*arguments)-1 {
			return "", configParseError(line, "no value supplied for argument: ", name)
		}

		value := (*arguments)[i+1]
		removeRange(arguments, i, i+2)
		return value, nil
	}
	return initial, nil
}

func removeRange[T any](s *[]T, from, to int) {
	ret := make([]T, 0, len(*s)-(to-from))
	ret = append(ret, (*s)[:from]...)
	ret = append(ret, (*s)[to:]...)
	*s = ret
}

func configParseError(line int, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidConfig, line, fmt.Sprint(args...))
}

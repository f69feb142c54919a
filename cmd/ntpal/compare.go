package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/ui"
	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	beevikntp "github.com/beevik/ntp"
)

type independentRecord struct {
	Time            time.Time     `json:"time"`
	ClockOffset     time.Duration `json:"clockOffset"`
	RTT             time.Duration `json:"rtt"`
	Stratum         uint8         `json:"stratum"`
	Difference      time.Duration `json:"difference"`
	ValidationError string        `json:"validationError,omitempty"`
}

// queryIndependent asks the same server through github.com/beevik/ntp so the
// decoded record can be checked against a second implementation. The two
// exchanges are separate, so Difference includes the time between them.
func queryIndependent(host string, opts *queryOptions, result *ntpal.Result) (*independentRecord, error) {
	port := opts.port
	if port == 0 {
		port = ntpal.DefaultPort
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	response, err := beevikntp.QueryWithOptions(address, beevikntp.QueryOptions{
		Timeout: opts.timeout,
		Version: opts.version,
	})
	if err != nil {
		return nil, fmt.Errorf("independent query failed: %w", err)
	}

	record := &independentRecord{
		Time:        response.Time.UTC(),
		ClockOffset: response.ClockOffset,
		RTT:         response.RTT,
		Stratum:     response.Stratum,
		Difference:  response.Time.Sub(result.Time),
	}
	if err := response.Validate(); err != nil {
		record.ValidationError = err.Error()
	}
	return record, nil
}

func renderIndependent(record *independentRecord) string {
	var s strings.Builder
	s.WriteString(ui.Title("Independent client") + "\n\n")
	s.WriteString(ui.Field("Server time", record.Time))
	s.WriteString(ui.Field("Clock offset", signed(record.ClockOffset)))
	s.WriteString(ui.Field("Round trip", record.RTT))
	s.WriteString(ui.Field("Stratum", record.Stratum))
	s.WriteString(ui.Field("Difference", signed(record.Difference)))
	if record.ValidationError != "" {
		s.WriteString(ui.Error("invalid reply: "+record.ValidationError) + "\n")
	}
	return s.String()
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newServersCommand() *cobra.Command {
	var config string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Query every server listed in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServers(cmd.Context(), config, concurrency)
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", defaultConfig(), "Path to the NTP config file.")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Servers queried at once.")

	return cmd
}

func runServers(ctx context.Context, path string, concurrency int) error {
	config, err := ntpal.LoadConfig(path)
	if err != nil {
		return err
	}
	if len(config.Servers) == 0 {
		return fmt.Errorf("no servers configured in %s", path)
	}

	client := ntpal.NewClient(&ntpal.ClientConfig{Logger: newLogger()})
	results := client.QueryServers(ctx, config.Servers, concurrency)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Server", "Version", "Stratum", "Reference", "Server time", "Error"})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			table.Append([]string{r.Server.Address(), strconv.Itoa(int(r.Server.Version)), "", "", "", r.Err.Error()})
			continue
		}
		packet := r.Result.Packet
		table.Append([]string{
			r.Server.Address(),
			strconv.Itoa(int(packet.Version)),
			strconv.Itoa(int(packet.Stratum)),
			packet.Reference(),
			r.Result.Time.Format("2006-01-02T15:04:05.000Z07:00"),
			"",
		})
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d servers failed", failed, len(results))
	}
	return nil
}

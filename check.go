/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Seednode/scrawl/client"
	"github.com/Seednode/scrawl/internal/discovery"
)

// checkRoom asks the server at cfg.server whether roomID has members. A
// missing room is reported as client.ErrRoomNotFound so the command exits
// non-zero.
func checkRoom(ctx context.Context, out io.Writer, cfg *Config, roomID string) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	s, err := client.Dial(ctx, cfg.server)
	if err != nil {
		return err
	}
	defer s.Close()

	exists, err := s.CheckRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if !exists {
		fmt.Fprintf(out, "room %s: not found\n", roomID)

		return fmt.Errorf("%w: %s", client.ErrRoomNotFound, roomID)
	}

	fmt.Fprintf(out, "room %s: active\n", roomID)

	return nil
}

func browseServers(ctx context.Context, out io.Writer, cfg *Config) error {
	servers, err := discovery.Browse(ctx, cfg.browseTimeout)
	if err != nil {
		return err
	}

	if len(servers) == 0 {
		fmt.Fprintln(out, "no servers found")

		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tINFO")
	for _, srv := range servers {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", srv.Name, srv.Addr, srv.Info)
	}

	return tw.Flush()
}

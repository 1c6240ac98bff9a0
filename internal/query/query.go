// Package query wraps the bmotd client with the service configuration.
package query

import (
	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/pkg/bmotd"
)

// Status pings a Bedrock server and returns its decoded status, or an error
// if the server is unreachable or answers with an unparsable payload.
func Status(host string, port uint16, options config.Query) (*bmotd.Info, error) {
	client, err := bmotd.New(host, port)
	if err != nil {
		return nil, err
	}

	client.Timeout = options.Timeout
	client.BufferSize = options.BufferSize

	motd, err := client.Query()
	if err != nil {
		return nil, err
	}

	return bmotd.ParseInfo(motd)
}

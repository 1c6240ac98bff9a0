// Package models defines the data structures used for API requests and
// database persistence.
package models

import "time"

// TrackRequest represents the payload sent by a client registering a server
// for tracking.
type TrackRequest struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

// Server represents a tracked Bedrock server stored in the database.
// Status fields mirror the unconnected pong payload and can be empty when
// the last query failed.
type Server struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Host        string    `json:"host"`
	IP          string    `json:"ip"`
	CountryCode string    `json:"country_code"`
	Edition     string    `json:"edition"`
	Name        string    `json:"name"`
	SubName     string    `json:"sub_name"`
	GameMode    string    `json:"game_mode"`
	Version     string    `json:"version"`
	ServerID    string    `json:"server_id"`
	Port        int       `json:"port"`
	Protocol    int       `json:"protocol"`
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	Count       int64     `json:"count"`
}

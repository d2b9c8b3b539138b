// Package models holds the user and message records shared by repositories,
// services and the HTTP layer. JSON tags are the wire names clients rely on.
package models

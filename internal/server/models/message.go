package models

import "time"

// Message is a messages row as created by a sender.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"-"`
}

// MessageDetail is a message with both parties' profiles joined in.
type MessageDetail struct {
	ID       int64      `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser Party      `json:"from_user"`
	ToUser   Party      `json:"to_user"`
}

// SentMessage is a row of a user's outbox: the recipient is the other party.
type SentMessage struct {
	ID     int64      `json:"id"`
	ToUser Party      `json:"to_user"`
	Body   string     `json:"body"`
	SentAt time.Time  `json:"sent_at"`
	ReadAt *time.Time `json:"read_at"`
}

// ReceivedMessage is a row of a user's inbox: the sender is the other party.
type ReceivedMessage struct {
	ID       int64      `json:"id"`
	FromUser Party      `json:"from_user"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
}

// ReadReceipt is returned when a recipient marks a message read.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

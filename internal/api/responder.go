package api

import (
	"fmt"
	"strings"
)

type keywordReply struct {
	keyword string
	reply   string
}

// Responder answers commands from an ordered keyword table. The first keyword
// contained in the message wins.
type Responder struct {
	replies []keywordReply
}

func NewResponder() *Responder {
	return &Responder{replies: []keywordReply{
		{"hello", "Hello! I'm your voice assistant. How can I help you?"},
		{"jarvis", "Yes, I'm here! What would you like me to do?"},
		{"search", "I'm ready to help you search for information. What would you like to find?"},
		{"weather", "I can help you check the weather. Which location would you like to know about?"},
		{"time", "I can tell you the current time. What timezone are you interested in?"},
		{"help", "I'm Jarvis, your voice-enabled assistant. You can ask me to search for information, answer questions, or help with various tasks."},
	}}
}

// Reply returns the answer and the keyword that produced it, or "default".
func (r *Responder) Reply(message string) (string, string) {
	lower := strings.ToLower(message)
	for _, entry := range r.replies {
		if strings.Contains(lower, entry.keyword) {
			return entry.reply, entry.keyword
		}
	}
	return fmt.Sprintf("I understand you said: '%s'. I'm a voice assistant ready to help! Try asking me to search for something or ask me questions.", message), "default"
}

package main

import (
	"context"
	"time"

	client "github.com/hugolgst/rich-go/client"
)

func initDiscordRPC(ctx context.Context, character string) {
	if err := client.Login("1289406771033422109"); err != nil {
		logError("discord rpc login: %v", err)
		return
	}
	if character == "" {
		character = "a character"
	}
	now := time.Now()
	if err := client.SetActivity(client.Activity{
		State:   "acdplay",
		Details: "Watching " + character,
		Timestamps: &client.Timestamps{
			Start: &now,
		},
	}); err != nil {
		logError("discord rpc activity: %v", err)
	}
	go func() {
		<-ctx.Done()
		client.Logout()
	}()
}

package main

import (
	"log"

	corecmd "avylbot/core/cmd"
	"avylbot/internal/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        bot.Load,
		Bootstrap:         bot.Bootstrap,
	})
	if err != nil {
		log.Fatalf("avylbot: %v", err)
	}
}

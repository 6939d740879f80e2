package main

import "github.com/bamit99/whatsapp-bot/cmd"

func main() {
	cmd.Execute()
}

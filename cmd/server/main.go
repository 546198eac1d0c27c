package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/server"
)

func main() {
	parser := argparse.NewParser("server", "Light detection web service")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "server.json"})
	port := parser.String("p", "port", &argparse.Options{Help: "Port to listen on", Default: "8080"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	s, err := server.NewServer(*configFile)
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	s.ListenForInterruptSignal()
	if err := s.ListenHTTP(":" + *port); err != nil {
		fmt.Printf("%v\n", err)
	}
}

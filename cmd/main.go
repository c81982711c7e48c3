package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.WithError(err).Error("rfqd failed")
		os.Exit(1)
	}
}

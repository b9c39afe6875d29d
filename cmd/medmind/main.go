// MedMind ranks likely diseases for a comma-separated symptom list and
// serves the same matcher over HTTP.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/medmind/cmd/medmind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/effects"
)

var effectBlurbs = map[string]string{
	"stutter":   "repeat a short chunk back to back",
	"reverse":   "play the cut backwards, audio included",
	"scramble":  "chop the cut up and shuffle the pieces",
	"zoompunch": "crop a drifting window and blow it up",
	"gain":      "overdrive the audio track",
	"speed":     "run the cut fast or slow",
	"mirror":    "flip the picture horizontally",
	"flash":     "strobe the brightness",
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List the effect library",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range effects.NewRegistry().Names() {
			fmt.Printf("%-10s %s\n", name, effectBlurbs[name])
		}
		return nil
	},
}

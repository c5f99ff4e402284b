package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

// interactive reports whether stdin is a terminal we can prompt on.
func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func missingRequired(in observation.Input) bool {
	return strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.TickerCode) == "" ||
		strings.TrimSpace(in.TickerName) == "" ||
		strings.TrimSpace(in.Price) == "" ||
		len(observation.NormalizeTags(in.Industry)) == 0 ||
		len(observation.NormalizeTags(in.Concept)) == 0
}

func required(val interface{}) error {
	if strings.TrimSpace(val.(string)) == "" {
		return fmt.Errorf("this field is required")
	}
	return nil
}

// promptObservation asks for every required field still empty in in.
func promptObservation(in *observation.Input) error {
	ask := func(field *string, msg, help string, validate survey.Validator) error {
		if strings.TrimSpace(*field) != "" {
			return nil
		}
		return survey.AskOne(&survey.Input{Message: msg, Help: help}, field, survey.WithValidator(validate))
	}

	if err := ask(&in.Date, "Date (YYYY-MM-DD):", "", func(val interface{}) error {
		if _, err := time.Parse(observation.DateLayout, strings.TrimSpace(val.(string))); err != nil {
			return observation.ErrInvalidDate
		}
		return nil
	}); err != nil {
		return err
	}
	if err := ask(&in.TickerCode, "Ticker code:", "e.g. 600000", required); err != nil {
		return err
	}
	if err := ask(&in.TickerName, "Ticker name:", "", required); err != nil {
		return err
	}
	if err := ask(&in.Price, "Price:", "", required); err != nil {
		return err
	}

	if len(observation.NormalizeTags(in.Industry)) == 0 {
		var raw string
		if err := ask(&raw, "Industry tags:", "Separate tags with commas", required); err != nil {
			return err
		}
		in.Industry = observation.ParseTags(raw)
	}
	if len(observation.NormalizeTags(in.Concept)) == 0 {
		var raw string
		if err := ask(&raw, "Concept tags:", "Separate tags with commas", required); err != nil {
			return err
		}
		in.Concept = observation.ParseTags(raw)
	}

	if in.Forecast == "" {
		var choice string
		prompt := &survey.Select{
			Message: "Forecast:",
			Options: []string{"none", "long", "short"},
			Default: "none",
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			return err
		}
		in.Forecast = choice
	}
	if in.Comment == "" {
		if err := survey.AskOne(&survey.Input{Message: "Comment (optional):"}, &in.Comment); err != nil {
			return err
		}
	}
	return nil
}

func confirm(msg string) (bool, error) {
	var ok bool
	err := survey.AskOne(&survey.Confirm{Message: msg}, &ok)
	return ok, err
}

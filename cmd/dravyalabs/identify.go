package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dravyalabs/internal/dravya"
	"dravyalabs/internal/form"
)

var reading form.Reading

var readingFlags = []struct {
	name  string
	usage string
	value *string
}{
	{"ph", "pH value", &reading.PH},
	{"tds", "Total Dissolved Solids (ppm)", &reading.TDS},
	{"turbidity", "Turbidity (NTU)", &reading.Turbidity},
	{"gas", "Detected gas level (ppm)", &reading.Gas},
	{"color-index", "Visual color scale value", &reading.ColorIndex},
	{"temp", "Temperature (°C)", &reading.Temp},
}

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify a dravya from one set of sensor readings",
	Long: `Validates the six readings, sends them to the identification backend and
prints the resulting outcome as JSON. Exits non-zero when the outcome is an error.

Example:
  dravyalabs identify --ph 7.2 --tds 220 --turbidity 3.5 --gas 15 --color-index 12 --temp 24.6`,
	Args: cobra.NoArgs,
	RunE: runIdentify,
}

var searchCmd = &cobra.Command{
	Use:   "search [name]",
	Short: "Look up a dravya by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var researchCmd = &cobra.Command{
	Use:   "research [dravya] [query]",
	Short: "Ask the backend a free-text question about a dravya",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runResearch,
}

func runIdentify(cmd *cobra.Command, args []string) error {
	client, err := dravya.NewClient(cfg.APIURL())
	if err != nil {
		return err
	}

	controller := form.NewController(client, logger)
	out, err := controller.Submit(cmd.Context(), reading)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if msg, failed := out.Message(); failed {
		return errors.New(msg)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := dravya.NewClient(cfg.APIURL())
	if err != nil {
		return err
	}

	name := strings.Join(args, " ")
	res, err := client.Search(cmd.Context(), name)
	if err != nil {
		return errors.New(form.FailureMessage(err, form.FallbackSearch))
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runResearch(cmd *cobra.Command, args []string) error {
	client, err := dravya.NewClient(cfg.APIURL())
	if err != nil {
		return err
	}

	query := strings.Join(args[1:], " ")
	ans, err := client.Research(cmd.Context(), args[0], query)
	if err != nil {
		return errors.New(form.FailureMessage(err, form.FallbackResearch))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

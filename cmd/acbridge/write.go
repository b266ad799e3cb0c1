package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgeclimate/acbridge/service"
)

var (
	writeAddr     uint16
	writeValue    uint16
	writeNoVerify bool
	writeExpected int32
)

var writeCmd = &cobra.Command{
	Use:     "write",
	Aliases: []string{"w"},
	Short:   "Write a holding register with readback verification",
	Long: `Write a single holding register.

By default the written value is read back and verified; a mismatch is
reported as an unverified result. Some registers echo a transformed value,
use --expected to verify against it instead of the written value.`,
	Example: `  # Turn power on
  acbridge write -a 1033 -V 1 -H 192.168.1.100

  # Set mode to heat (2), expecting the device to echo it
  acbridge w -a 1041 -V 2 --expected 2

  # Fire-and-forget
  acbridge w -a 1168 -V 0 --no-verify`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().Uint16VarP(&writeAddr, "address", "a", 0, "Register address")
	writeCmd.Flags().Uint16VarP(&writeValue, "value", "V", 0, "Value to write")
	writeCmd.Flags().BoolVar(&writeNoVerify, "no-verify", false, "Skip readback verification")
	writeCmd.Flags().Int32Var(&writeExpected, "expected", -1, "Expected readback value (default: written value)")
	writeCmd.MarkFlagRequired("value")
}

func runWrite(cmd *cobra.Command, args []string) error {
	h, err := buildHub()
	if err != nil {
		return err
	}
	defer h.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), timeout*4)
	defer cancel()

	if err := h.Connect(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	req := service.WriteRequest{
		Register: writeAddr,
		Value:    writeValue,
		NoVerify: writeNoVerify,
	}
	if writeExpected >= 0 {
		expected := uint16(writeExpected)
		req.Expected = &expected
	}

	res := service.WriteRegister(ctx, h, req)

	if outputFmt == "json" {
		if err := printJSON(res); err != nil {
			return err
		}
	} else if res.Error != "" {
		outputError("write register %d = %d: %s", res.Register, res.Value, res.Error)
	} else if res.Verified && res.Readback != nil {
		outputSuccess("Wrote register %d = %d (readback %d)", res.Register, res.Value, *res.Readback)
	} else {
		outputSuccess("Wrote register %d = %d", res.Register, res.Value)
	}

	if res.Error != "" {
		return fmt.Errorf("write failed")
	}
	return nil
}

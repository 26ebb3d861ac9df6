package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewmudry/scriptcast/auth"
	"github.com/drewmudry/scriptcast/avatar"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// tokenCmd mints an API bearer token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.GenerateJWT(cfg.App.JWTSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// speakersCmd lists MuseTalk voices
var speakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "List the voices offered by the MuseTalk server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		speakers, err := avatar.NewMuseTalk(cfg.Avatar.MuseTalkURL).ListSpeakers(ctx)
		if err != nil {
			return err
		}
		for _, s := range speakers {
			fmt.Fprintln(cmd.OutOrStdout(), string(s))
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTTL, "Token lifetime")
}

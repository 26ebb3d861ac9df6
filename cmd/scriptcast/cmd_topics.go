package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/internal/platform"
	"github.com/drewmudry/scriptcast/topics"
)

var (
	topicsLimit  int
	topicsStatus string
)

// topicsCmd manages the topic backlog
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage the topic backlog",
}

var topicsAddCmd = &cobra.Command{
	Use:   "add <topic>...",
	Short: "Add topics to the backlog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTopicsAdd,
}

var topicsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Pull new topics from the configured feeds",
	RunE:  runTopicsRefresh,
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored topics",
	RunE:  runTopicsList,
}

func init() {
	topicsRefreshCmd.Flags().IntVar(&topicsLimit, "limit", 20, "Maximum feed items to consider")
	topicsListCmd.Flags().IntVar(&topicsLimit, "limit", 20, "Maximum topics to list")
	topicsListCmd.Flags().StringVar(&topicsStatus, "status", "", "Only list topics with this status")

	topicsCmd.AddCommand(topicsAddCmd)
	topicsCmd.AddCommand(topicsRefreshCmd)
	topicsCmd.AddCommand(topicsListCmd)
}

func openDB() (*gorm.DB, error) {
	return platform.NewDBConnection(cfg, logger)
}

func runTopicsAdd(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	added, err := topics.NewStore(db).Add(cmd.Context(), args, "cli")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d topics\n", added, len(args))
	return nil
}

func runTopicsRefresh(cmd *cobra.Command, args []string) error {
	if len(cfg.Topics.Feeds) == 0 {
		return errors.New("no feeds configured, set TOPIC_FEEDS")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	db, err := openDB()
	if err != nil {
		return err
	}
	added, err := topics.Refresh(ctx, topics.NewFeedSource(cfg.Topics.Feeds, logger), topics.NewStore(db), topicsLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d new topics\n", added)
	return nil
}

func runTopicsList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	list, err := topics.NewStore(db).List(cmd.Context(), topicsStatus, topicsLimit)
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%5d  %-8s  %s\n", t.ID, t.Status, t.Text)
	}
	return nil
}

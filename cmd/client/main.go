package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmezhova/everlog/internal/biography"
	"github.com/kmezhova/everlog/internal/client/oracle"
	"github.com/kmezhova/everlog/internal/client/syncer"
	"github.com/kmezhova/everlog/internal/config"
	"github.com/kmezhova/everlog/internal/draft"
	"github.com/kmezhova/everlog/internal/logger"
	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/quota"
	"github.com/kmezhova/everlog/internal/store"
)

const dateLayout = "2006-01-02"

var (
	version   string
	buildDate string
)

// app bundles the collaborators the shell commands operate on.
type app struct {
	store    *store.Store
	tracker  *draft.Tracker
	monitor  *quota.Monitor
	prompter *biography.Prompter
	syncer   *syncer.Syncer
}

// editor runs the sub-loop for composing one day's entry. An autosave
// session runs for the whole edit and is flushed or discarded on exit.
func (a *app) editor(ctx context.Context, date string) {
	var mu sync.Mutex
	current := models.Draft{Key: date, Mood: models.DefaultMood}
	if d, ok := a.tracker.Load(ctx, date); ok {
		current = d
		fmt.Println("Resumed unsaved draft from", time.UnixMilli(d.UpdatedAt).Format(time.RFC822))
	}

	session := a.tracker.Track(date, func() models.Draft {
		mu.Lock()
		defer mu.Unlock()
		snap := current
		snap.UpdatedAt = time.Now().UnixMilli()
		return snap
	})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("edit %s> ", date)
		if !scanner.Scan() {
			session.Stop()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Editor commands: text <line>, mood <1-5>, tag <name>, private, show, save, discard, done")
		case "text":
			mu.Lock()
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += strings.TrimSpace(strings.TrimPrefix(line, "text"))
			mu.Unlock()
		case "mood":
			if len(args) < 2 {
				fmt.Println("Usage: mood <1-5>")
				continue
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 || n > 5 {
				fmt.Println("Mood must be a number from 1 to 5")
				continue
			}
			mu.Lock()
			current.Mood = n
			mu.Unlock()
		case "tag":
			if len(args) < 2 {
				fmt.Println("Usage: tag <name>")
				continue
			}
			mu.Lock()
			current.Tags = append(current.Tags, args[1])
			mu.Unlock()
		case "private":
			mu.Lock()
			current.Private = !current.Private
			private := current.Private
			mu.Unlock()
			fmt.Println("Private:", private)
		case "show":
			mu.Lock()
			b, _ := json.MarshalIndent(current, "", "  ")
			mu.Unlock()
			fmt.Println(string(b))
		case "save":
			session.Stop()
			mu.Lock()
			entry := models.Entry{
				ID:        uuid.NewString(),
				Date:      date,
				Text:      current.Text,
				Mood:      current.Mood,
				Tags:      current.Tags,
				Private:   current.Private,
				AIAllowed: !current.Private,
				Version:   time.Now().Unix(),
			}
			mu.Unlock()
			if err := a.store.PutEntry(ctx, entry); err != nil {
				fmt.Println("Failed to save entry:", err)
				return
			}
			a.tracker.Discard(ctx, date)
			fmt.Println("Entry saved:", entry.ID)
			return
		case "discard":
			mu.Lock()
			hasContent := draft.HasContent(current)
			mu.Unlock()
			if hasContent {
				fmt.Print("Draft has content. Discard anyway? (y/n) ")
				if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "y" {
					continue
				}
			}
			session.Stop()
			a.tracker.Discard(ctx, date)
			fmt.Println("Draft discarded")
			return
		case "done":
			session.Stop()
			fmt.Println("Draft kept for later")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// repl runs the interactive shell loop for the diary.
func (a *app) repl(ctx context.Context) {
	a.prompter.Check(ctx)
	if p := a.prompter.Active(); p != nil {
		fmt.Printf("You have qualifying entries for %s. Type 'generate' to create a biography or 'dismiss' to skip today.\n", p.Date)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("everlog> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, write [date], entries <date>, usage, bio [date], generate, update <date>, dismiss, sync, exit")
		case "write":
			date := time.Now().Format(dateLayout)
			if len(args) > 1 {
				date = args[1]
			}
			if _, err := time.Parse(dateLayout, date); err != nil {
				fmt.Println("Dates look like 2024-05-20")
				continue
			}
			a.editor(ctx, date)
		case "entries":
			if len(args) < 2 {
				fmt.Println("Usage: entries <date>")
				continue
			}
			entries, err := a.store.EntriesByDate(ctx, args[1])
			if err != nil {
				fmt.Println("Failed to list entries:", err)
				continue
			}
			if len(entries) == 0 {
				fmt.Println("No entries for", args[1])
				continue
			}
			for _, e := range entries {
				b, _ := json.MarshalIndent(e, "", "  ")
				fmt.Println(string(b))
			}
		case "usage":
			snap := a.monitor.Refresh(ctx)
			fmt.Printf("Using %s", snap.Formatted)
			switch snap.Level {
			case models.LevelWarning:
				fmt.Print(" (getting full, consider exporting old attachments)")
			case models.LevelCritical:
				fmt.Print(" (storage critical, saves may start failing)")
			}
			fmt.Println()
		case "bio":
			date := time.Now().Format(dateLayout)
			if len(args) > 1 {
				date = args[1]
			}
			bio, err := a.store.GetBiography(ctx, date)
			if err != nil {
				fmt.Println("No biography for", date)
				continue
			}
			fmt.Printf("[%s] %s\n", bio.Status, bio.Text)
		case "generate":
			p := a.prompter.Active()
			if p == nil {
				fmt.Println("Nothing to generate right now")
				continue
			}
			fmt.Println("Generating biography for", p.Date, "...")
			bio, err := a.prompter.Generate(ctx, p.Date)
			if err != nil {
				fmt.Println("Generation failed:", err)
				continue
			}
			fmt.Println(bio.Text)
		case "update":
			if len(args) < 2 {
				fmt.Println("Usage: update <date>")
				continue
			}
			a.prompter.PromptUpdate(ctx, args[1])
			if p := a.prompter.Active(); p != nil {
				fmt.Println("Type 'generate' to regenerate the biography for", p.Date)
			} else {
				fmt.Println("No completed biography for", args[1])
			}
		case "dismiss":
			a.prompter.Dismiss(ctx)
			fmt.Println("Okay, not today")
		case "sync":
			if err := a.syncer.Sync(ctx); err != nil {
				fmt.Println("Sync failed:", err)
				continue
			}
			fmt.Println("Synced")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	options := config.Parse()

	if options.ShowVersion {
		fmt.Printf("everlog Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init("Error"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	recordStore, err := store.Open(options.ClientDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open record store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = recordStore.Close() }()

	deviceID := options.DeviceID
	if deviceID == "" {
		host, _ := os.Hostname()
		deviceID = cmp.Or(host, uuid.NewString())
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	ctx := context.Background()

	a := &app{
		store:   recordStore,
		tracker: draft.NewTracker(recordStore, zapLogger, config.AutosaveInterval),
		monitor: quota.NewMonitor(recordStore, zapLogger,
			config.WarningThresholdBytes, config.CriticalThresholdBytes),
		prompter: biography.NewPrompter(recordStore,
			oracle.New(httpClient, options.OracleURL),
			zapLogger, options.AIEnabled, options.Locale),
		syncer: &syncer.Syncer{
			HTTP:     httpClient,
			BaseURL:  options.ServerURL,
			DeviceID: deviceID,
			Store:    recordStore,
			Log:      zapLogger,
		},
	}

	a.syncer.Start(ctx, 5*time.Minute)
	a.repl(ctx)
}

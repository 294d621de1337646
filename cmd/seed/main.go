package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/unified-report/apps/api/internal/auth"
	"github.com/unified-report/apps/api/internal/compliance"
	"github.com/unified-report/apps/api/internal/db"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/store"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	organization := envOrDefault("SEED_ORGANIZATION", "Acme Corp")
	engagementName := envOrDefault("SEED_ENGAGEMENT_NAME", "Quarterly service review")

	defaults, err := sections.LoadDefaults(os.Getenv("SECTION_DEFAULTS_FILE"))
	if err != nil {
		log.Fatalf("load section defaults: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	st := store.NewStore(pool)

	now := time.Now().UTC()
	quarterStart := time.Date(now.Year(), ((now.Month()-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
	engagement, err := st.CreateEngagement(ctx, store.CreateEngagementParams{
		Name:         engagementName,
		Organization: organization,
		PeriodType:   "quarterly",
		PeriodStart:  quarterStart,
		PeriodEnd:    quarterStart.AddDate(0, 3, -1),
	})
	if err != nil {
		log.Fatalf("create engagement: %v", err)
	}

	docs := make(map[string]string, len(sections.Keys()))
	for _, key := range sections.Keys() {
		value, err := defaults.For(key)
		if err != nil {
			log.Fatalf("default for %s: %v", key, err)
		}
		doc, err := sections.Encode(key, value)
		if err != nil {
			log.Fatalf("encode %s: %v", key, err)
		}
		docs[key] = doc
	}
	if _, err := st.SaveSections(ctx, engagement.ID, docs); err != nil {
		log.Fatalf("save default sections: %v", err)
	}

	track, err := st.CreateTrack(ctx, store.CreateTrackParams{
		EngagementID:       engagement.ID,
		OEM:                "Dell Technologies",
		Name:               "Storage Specialist",
		OverallRequirement: 3,
	})
	if err != nil {
		log.Fatalf("create compliance track: %v", err)
	}
	for _, a := range []struct{ engineer, status string }{
		{"Ada Lovelace", compliance.StatusEarned},
		{"Grace Hopper", compliance.StatusInProgress},
		{"Linus Torvalds", compliance.StatusNotStarted},
	} {
		if _, err := st.CreateAssignment(ctx, store.CreateAssignmentParams{
			TrackID:           track.ID,
			EngineerName:      a.engineer,
			CertificationName: "PowerStore Implementation",
			Status:            a.status,
		}); err != nil {
			log.Fatalf("create assignment: %v", err)
		}
	}
	detail, err := st.RecalculateTrack(ctx, track.ID)
	if err != nil {
		log.Fatalf("recalculate track: %v", err)
	}

	fmt.Printf("Seed completed. Engagement=%s (%s), track=%s earned=%d/%d\n",
		engagement.ID, engagement.Name, detail.ID, detail.OverallEarned, detail.OverallRequirement)

	token := os.Getenv("SEED_API_TOKEN")
	if token == "" {
		if token, err = auth.GenerateToken(); err != nil {
			log.Fatalf("generate token: %v", err)
		}
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		log.Fatalf("hash token: %v", err)
	}
	fmt.Printf("API token=%s\nAPI_TOKEN_HASH='%s'\n", token, hash)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

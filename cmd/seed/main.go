package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	goimage "image"
	"image/color"
	"image/png"
	"log/slog"
	"os"

	"imagegallery/internal/config"
	"imagegallery/internal/database"
	"imagegallery/internal/domain/auth"
	"imagegallery/internal/domain/image"
	"imagegallery/internal/pkg/logger"
	"imagegallery/internal/server"
)

const (
	demoEmail    = "demo@gallery.local"
	demoPassword = "demo1234"
)

var swatches = []struct {
	title       string
	description string
	color       color.RGBA
}{
	{"Sunset", "Warm evening over the bay", color.RGBA{R: 0xF2, G: 0x7A, B: 0x3C, A: 0xFF}},
	{"Forest", "Deep green canopy", color.RGBA{R: 0x2E, G: 0x6B, B: 0x3A, A: 0xFF}},
	{"Ocean", "", color.RGBA{R: 0x1F, G: 0x5F, B: 0xA8, A: 0xFF}},
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(os.Stderr, cfg.LogLevel, cfg.AppEnv)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	log.Info("running migrations")
	if err := server.Migrate(db); err != nil {
		return err
	}

	users := auth.NewRepository(db)
	demo, err := users.GetByEmail(ctx, demoEmail)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		hash, err := auth.HashPassword(demoPassword)
		if err != nil {
			return err
		}
		demo = &auth.User{Email: demoEmail, Name: "Demo User", PasswordHash: hash}
		if err := users.Create(ctx, demo); err != nil {
			return fmt.Errorf("create demo user: %w", err)
		}
		log.Info("demo user created", "email", demoEmail, "password", demoPassword)
	case err != nil:
		return err
	default:
		log.Info("demo user exists", "user_id", demo.ID)
	}

	store, err := server.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	images := server.NewImageService(server.Deps{Config: cfg, DB: db, Storage: store, Logger: log})

	existing, err := images.List(ctx, image.ListFilter{OwnerID: &demo.ID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("demo images already present, nothing to do", "count", len(existing))
		return nil
	}

	for _, s := range swatches {
		data, err := swatch(s.color)
		if err != nil {
			return err
		}
		img, err := images.Create(ctx, demo.ID,
			image.CreateInput{Title: s.title, Description: s.description},
			&image.FileInput{Filename: s.title + ".png", Data: data})
		if err != nil {
			return fmt.Errorf("create %q: %w", s.title, err)
		}
		log.Info("seeded image", "image_id", img.ID, "url", img.URL)
	}
	return nil
}

// swatch renders a small solid PNG.
func swatch(c color.RGBA) ([]byte, error) {
	m := goimage.NewRGBA(goimage.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			m.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

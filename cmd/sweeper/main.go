// Command sweeper removes expired files from the scratch and output
// directories. Run it from cron, or anywhere the API's data directories are
// mounted.
package main

import (
	"github.com/joho/godotenv"

	"multitool/internal/infra"
	"multitool/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	for _, dir := range []string{cfg.ScratchDir, cfg.OutputDir} {
		removed, err := storage.Sweep(dir, cfg.OutputTTL)
		if err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("sweep failed")
			continue
		}
		logger.Info().Str("dir", dir).Int("removed", removed).Msg("sweep done")
	}
}

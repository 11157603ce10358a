package player

import (
	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/log"
)

// CreateEngineFactory returns an EngineFactory for the configured player type
func CreateEngineFactory(cfg *config.Config) EngineFactory {
	playerType := PlayerType(cfg.Player.Type)
	log.Info("Creating engine factory", "type", playerType)

	switch playerType {
	case PlayerTypeMPV:
		return mpvFactory(cfg)
	case PlayerTypeBeep:
		return func() (Engine, error) {
			return NewBeepEngine(), nil
		}
	default:
		log.Warn("Unknown player type, falling back to MPV", "type", playerType)
		return mpvFactory(cfg)
	}
}

func mpvFactory(cfg *config.Config) EngineFactory {
	opts := MPVOptions{
		Path:       cfg.Player.Path,
		Args:       cfg.Player.Args,
		SocketPath: cfg.Player.SocketPath,
	}
	return func() (Engine, error) {
		return NewMPVEngine(opts), nil
	}
}

package services

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// NewID returns a unique, creation-time ordered record id
func NewID() string {
	idNodeOnce.Do(func() {
		var err error
		idNode, err = snowflake.NewNode(1)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create id generator")
		}
	})
	return idNode.Generate().String()
}

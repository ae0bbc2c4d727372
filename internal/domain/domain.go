package domain

import (
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/conversation"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/tier"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/user"
)

type User = user.User
type UserUpsert = user.UpsertFields

type Conversation = conversation.Conversation
type Message = conversation.Message
type NewMessage = conversation.NewMessage
type MessageRole = conversation.Role

const (
	RoleUser      = conversation.RoleUser
	RoleAssistant = conversation.RoleAssistant
)

type TierDescriptor = tier.Descriptor
type TierBand = tier.Band
type TierUpInfo = tier.TierUpInfo

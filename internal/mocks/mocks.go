package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) GlobalChannel(ctx context.Context) (models.Channel, error) {
	args := m.Called(ctx)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) CreateOrGetDirect(ctx context.Context, userID int, peerID int) (models.Channel, error) {
	args := m.Called(ctx, userID, peerID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannels(ctx context.Context, userID int) ([]models.Channel, error) {
	args := m.Called(ctx, userID)
	var list []models.Channel
	if val := args.Get(0); val != nil {
		list = val.([]models.Channel)
	}
	return list, args.Error(1)
}

func (m *ChannelRepositoryMock) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) IsAdmin(ctx context.Context, channelID int, userID int) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) Members(ctx context.Context, channelID int) ([]models.ChannelMember, error) {
	args := m.Called(ctx, channelID)
	var list []models.ChannelMember
	if val := args.Get(0); val != nil {
		list = val.([]models.ChannelMember)
	}
	return list, args.Error(1)
}

func (m *ChannelRepositoryMock) CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Channel, error) {
	args := m.Called(ctx, creatorID, name, memberIDs)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) AddMember(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) RemoveMember(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) SetAdmin(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) DeleteChannel(ctx context.Context, channelID int) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, channelID int, senderID int, draft models.Draft) (models.Message, error) {
	args := m.Called(ctx, channelID, senderID, draft)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) FetchRecent(ctx context.Context, channelID int, limit int, viewerRole models.Role) ([]models.Message, error) {
	args := m.Called(ctx, channelID, limit, viewerRole)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Edit(ctx context.Context, messageID int64, callerID int, newContent string) (models.Message, error) {
	args := m.Called(ctx, messageID, callerID, newContent)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Unsend(ctx context.Context, messageID int64, callerID int) error {
	args := m.Called(ctx, messageID, callerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) EditHistory(ctx context.Context, messageID int64) ([]models.MessageEdit, error) {
	args := m.Called(ctx, messageID)
	var list []models.MessageEdit
	if val := args.Get(0); val != nil {
		list = val.([]models.MessageEdit)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) EndCall(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ReadRepositoryMock struct {
	mock.Mock
}

func (m *ReadRepositoryMock) MarkRead(ctx context.Context, channelID int, userID int) (int, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Int(0), args.Error(1)
}

func (m *ReadRepositoryMock) UnreadCount(ctx context.Context, channelID int, userID int) (int, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Int(0), args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) React(ctx context.Context, messageID int64, userID int, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) Reactions(ctx context.Context, messageID int64) ([]models.ReactionGroup, error) {
	args := m.Called(ctx, messageID)
	var list []models.ReactionGroup
	if val := args.Get(0); val != nil {
		list = val.([]models.ReactionGroup)
	}
	return list, args.Error(1)
}

func (m *ReactionRepositoryMock) TogglePin(ctx context.Context, messageID int64) (bool, []int64, error) {
	args := m.Called(ctx, messageID)
	var evicted []int64
	if val := args.Get(1); val != nil {
		evicted = val.([]int64)
	}
	return args.Bool(0), evicted, args.Error(2)
}

func (m *ReactionRepositoryMock) PinnedMessages(ctx context.Context, channelID int) ([]models.Message, error) {
	args := m.Called(ctx, channelID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

type PollRepositoryMock struct {
	mock.Mock
}

func (m *PollRepositoryMock) CreatePoll(ctx context.Context, channelID int, senderID int, question string, options []string, allowMultiple bool) (models.Message, error) {
	args := m.Called(ctx, channelID, senderID, question, options, allowMultiple)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *PollRepositoryMock) Vote(ctx context.Context, messageID int64, userID int, optionID int) (models.Poll, error) {
	args := m.Called(ctx, messageID, userID, optionID)
	var poll models.Poll
	if val := args.Get(0); val != nil {
		poll = val.(models.Poll)
	}
	return poll, args.Error(1)
}

func (m *PollRepositoryMock) GetPoll(ctx context.Context, messageID int64) (models.Poll, error) {
	args := m.Called(ctx, messageID)
	var poll models.Poll
	if val := args.Get(0); val != nil {
		poll = val.(models.Poll)
	}
	return poll, args.Error(1)
}

type RosterRepositoryMock struct {
	mock.Mock
}

func (m *RosterRepositoryMock) Roster(ctx context.Context, userID int) ([]models.RosterEntry, error) {
	args := m.Called(ctx, userID)
	var list []models.RosterEntry
	if val := args.Get(0); val != nil {
		list = val.([]models.RosterEntry)
	}
	return list, args.Error(1)
}

func (m *RosterRepositoryMock) TogglePinnedPeer(ctx context.Context, userID int, peerID int) (bool, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Bool(0), args.Error(1)
}

func (m *RosterRepositoryMock) TouchRecent(ctx context.Context, userID int, peerID int) error {
	args := m.Called(ctx, userID, peerID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) ResolveUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) ValidateSession(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

var (
	_ repositories.ChannelRepository  = (*ChannelRepositoryMock)(nil)
	_ repositories.MessageRepository  = (*MessageRepositoryMock)(nil)
	_ repositories.ReadRepository     = (*ReadRepositoryMock)(nil)
	_ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
	_ repositories.PollRepository     = (*PollRepositoryMock)(nil)
	_ repositories.RosterRepository   = (*RosterRepositoryMock)(nil)
	_ repositories.UserRepository     = (*UserRepositoryMock)(nil)
)

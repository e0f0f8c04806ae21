package services

import (
	"testing"

	"inkwell/internal/events"
	"inkwell/internal/logging"
	"inkwell/internal/media"
	"inkwell/internal/testutil"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	bus      *events.LocalBus
	fs       afero.Fs
	accounts *AccountService
	groups   *GroupService
	follows  *FollowService
	feeds    *FeedService
	posts    *PostService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn := testutil.NewDB(t)
	bus := events.NewLocalBus()
	fs := afero.NewMemMapFs()
	log := logging.Discard()

	accounts := NewAccountService(conn, bcrypt.MinCost)
	groups := NewGroupService(conn)
	follows := NewFollowService(conn, accounts, bus, log)
	return &env{
		db:       conn,
		bus:      bus,
		fs:       fs,
		accounts: accounts,
		groups:   groups,
		follows:  follows,
		feeds:    NewFeedService(conn, accounts, groups, follows, 10),
		posts:    NewPostService(conn, media.NewFSStoreOn(fs, "/media"), bus, log),
	}
}

// record collects payloads published on subject.
func (e *env) record(t *testing.T, subject string) *[][]byte {
	t.Helper()
	var got [][]byte
	unsubscribe, err := e.bus.Subscribe(subject, func(data []byte) { got = append(got, data) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(unsubscribe)
	return &got
}

package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/config"
	"github.com/niranda/ukrainians-api/internal/crypt"
	"github.com/niranda/ukrainians-api/internal/db"
	"github.com/niranda/ukrainians-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newMessageService(t *testing.T, gdb *gorm.DB, keyHex string) *ChatMessageService {
	t.Helper()
	cipher, err := crypt.New(keyHex)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return NewChatMessageService(gdb, cipher)
}

func TestChatRoomService_GetByName_Absent(t *testing.T) {
	svc := NewChatRoomService(newTestDB(t))

	room, err := svc.GetByName("nope")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if room != nil {
		t.Errorf("GetByName() = %+v, want nil for absent room", room)
	}
}

func TestChatRoomService_CreateAndGet(t *testing.T) {
	svc := NewChatRoomService(newTestDB(t))

	room := models.ChatRoom{RoomName: "alice-bob"}
	if err := svc.Create(&room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if room.ID == uuid.Nil {
		t.Fatal("Create() did not assign an id")
	}

	byName, err := svc.GetByName("alice-bob")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if byName == nil || byName.ID != room.ID {
		t.Errorf("GetByName() = %+v, want id %s", byName, room.ID)
	}

	byID, err := svc.GetByID(room.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.RoomName != "alice-bob" {
		t.Errorf("GetByID() RoomName = %q, want alice-bob", byID.RoomName)
	}
}

func TestChatRoomService_Delete_CascadesNotifications(t *testing.T) {
	gdb := newTestDB(t)
	rooms := NewChatRoomService(gdb)
	notifs := NewChatNotificationService(gdb)

	room := models.ChatRoom{RoomName: "alice-bob"}
	if err := rooms.Create(&room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	n := models.ChatNotification{Username: "bob", UnreadMessages: 3, ChatRoomID: &room.ID}
	if err := notifs.Create(&n); err != nil {
		t.Fatalf("Create notification error = %v", err)
	}

	if err := rooms.Delete(room.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if got, err := rooms.GetByName("alice-bob"); err != nil || got != nil {
		t.Errorf("GetByName() after delete = (%+v, %v), want (nil, nil)", got, err)
	}
	if got, err := notifs.ByUsernameAndRoom("bob", room.ID); err != nil || got != nil {
		t.Errorf("notification after room delete = (%+v, %v), want (nil, nil)", got, err)
	}
}

func TestChatRoomService_RoomsUserInteractedWith(t *testing.T) {
	gdb := newTestDB(t)
	rooms := NewChatRoomService(gdb)
	msgs := newMessageService(t, gdb, "")

	room := models.ChatRoom{RoomName: "alice-bob"}
	other := models.ChatRoom{RoomName: "carol-dave"}
	if err := rooms.Create(&room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := rooms.Create(&other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := time.Now()
	old := models.ChatMessage{From: "alice", To: "bob", Content: "first", Created: now.Add(-time.Hour), ChatRoomID: &room.ID}
	recent := models.ChatMessage{From: "bob", To: "alice", Content: "second", Created: now, ChatRoomID: &room.ID}
	if err := msgs.Add(&old); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := msgs.Add(&recent); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := rooms.RoomsUserInteractedWith("alice")
	if err != nil {
		t.Fatalf("RoomsUserInteractedWith() error = %v", err)
	}
	if len(got) != 1 || got[0].RoomName != "alice-bob" {
		t.Fatalf("rooms = %+v, want only alice-bob", got)
	}
	if len(got[0].ChatMessages) != 2 || got[0].ChatMessages[0].Content != "second" {
		t.Errorf("messages not ordered newest first: %+v", got[0].ChatMessages)
	}

	names, err := rooms.UsernamesUserInteractedWith("alice")
	if err != nil {
		t.Fatalf("UsernamesUserInteractedWith() error = %v", err)
	}
	if len(names) != 1 || names[0] != "bob" {
		t.Errorf("names = %v, want [bob]", names)
	}
}

func TestChatMessageService_EncryptedAtRest(t *testing.T) {
	gdb := newTestDB(t)
	msgs := newMessageService(t, gdb, testKey)

	msg := models.ChatMessage{From: "alice", To: "bob", Content: "secret text"}
	if err := msgs.Add(&msg); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if msg.Content != "secret text" {
		t.Errorf("Add() left Content = %q, want plaintext restored", msg.Content)
	}

	var stored string
	if err := gdb.Raw("SELECT content FROM chat_messages WHERE id = ?", msg.ID).Scan(&stored).Error; err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if stored == "secret text" || stored == "" {
		t.Errorf("stored content = %q, want ciphertext", stored)
	}

	got, err := msgs.GetByID(msg.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Content != "secret text" {
		t.Errorf("GetByID() Content = %q, want decrypted plaintext", got.Content)
	}
	if msgs.Decrypt(stored) != "secret text" {
		t.Error("Decrypt() did not recover the plaintext")
	}
}

func TestChatMessageService_PlaintextWithoutKey(t *testing.T) {
	gdb := newTestDB(t)
	msgs := newMessageService(t, gdb, "")

	msg := models.ChatMessage{From: "alice", Content: "hello"}
	if err := msgs.Add(&msg); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var stored string
	if err := gdb.Raw("SELECT content FROM chat_messages WHERE id = ?", msg.ID).Scan(&stored).Error; err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if stored != "hello" {
		t.Errorf("stored content = %q, want passthrough plaintext", stored)
	}
}

func TestChatMessageService_SoftDelete(t *testing.T) {
	gdb := newTestDB(t)
	msgs := newMessageService(t, gdb, "")

	room := models.ChatRoom{RoomName: "alice-bob"}
	if err := NewChatRoomService(gdb).Create(&room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	msg := models.ChatMessage{From: "alice", To: "bob", Content: "bye", ChatRoomID: &room.ID}
	if err := msgs.Add(&msg); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := msgs.Delete(msg.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := msgs.GetByID(msg.ID); err != ErrMessageNotFound {
		t.Errorf("GetByID() after delete error = %v, want ErrMessageNotFound", err)
	}
	list, err := msgs.ListByRoom(room.ID)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListByRoom() = %d messages after delete, want 0", len(list))
	}

	// The row is still there, only flagged.
	var count int64
	if err := gdb.Unscoped().Model(&models.ChatMessage{}).Where("id = ?", msg.ID).Count(&count).Error; err != nil {
		t.Fatalf("unscoped count: %v", err)
	}
	if count != 1 {
		t.Errorf("unscoped count = %d, want 1 (soft delete)", count)
	}
}

func TestChatNotificationService_UniquePerUserAndRoom(t *testing.T) {
	gdb := newTestDB(t)
	notifs := NewChatNotificationService(gdb)

	roomID := uuid.New()
	first := models.ChatNotification{Username: "bob", UnreadMessages: 1, ChatRoomID: &roomID}
	if err := notifs.Create(&first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dup := models.ChatNotification{Username: "bob", UnreadMessages: 9, ChatRoomID: &roomID}
	if err := notifs.Create(&dup); err == nil {
		t.Error("Create() accepted a duplicate (username, room) counter")
	}

	got, err := notifs.ByUsernameAndRoom("bob", roomID)
	if err != nil {
		t.Fatalf("ByUsernameAndRoom() error = %v", err)
	}
	if got == nil || got.UnreadMessages != 1 {
		t.Errorf("counter = %+v, want the original with 1 unread", got)
	}
}

func TestPushSubscriptionService_OnePerUser(t *testing.T) {
	gdb := newTestDB(t)
	subs := NewPushSubscriptionService(gdb)

	if got, err := subs.ByUsername("bob"); err != nil || got != nil {
		t.Fatalf("ByUsername() absent = (%+v, %v), want (nil, nil)", got, err)
	}

	first := models.PushSubscription{Username: "bob", Endpoint: "https://push.test/1", P256DH: "k", Auth: "a"}
	if err := subs.Create(&first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dup := models.PushSubscription{Username: "bob", Endpoint: "https://push.test/2", P256DH: "k", Auth: "a"}
	if err := subs.Create(&dup); err == nil {
		t.Error("Create() accepted a second subscription for the same user")
	}

	if err := subs.Delete("bob"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, err := subs.ByUsername("bob"); err != nil || got != nil {
		t.Errorf("ByUsername() after delete = (%+v, %v), want (nil, nil)", got, err)
	}
}

func TestUserService_FindByName_Absent(t *testing.T) {
	svc := NewUserService(newTestDB(t), testConfig())

	user, err := svc.FindByName("ghost")
	if err != nil {
		t.Fatalf("FindByName() error = %v", err)
	}
	if user != nil {
		t.Errorf("FindByName() = %+v, want nil for absent user", user)
	}
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc := NewUserService(newTestDB(t), testConfig())

	reg, err := svc.Register("alice", "alice@test", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Username != "alice" || reg.ID == "" {
		t.Errorf("Register() = %+v", reg)
	}

	if _, err := svc.Register("alice", "other@test", "secret2"); err != ErrUsernameTaken {
		t.Errorf("duplicate Register() error = %v, want ErrUsernameTaken", err)
	}

	login, err := svc.Login("alice", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Error("Login() returned empty tokens")
	}

	if _, err := svc.Login("alice", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   7,
	}
}

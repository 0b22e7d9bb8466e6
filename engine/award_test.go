package engine

import (
	"errors"
	"testing"

	"github.com/qaforge/qaforge/models"
)

func TestGrantAwardCounters(t *testing.T) {
	d, db := newTestDispatcher(t)
	sender := createUser(t, db, "mod")
	user := createUser(t, db, "alice")
	badge := models.Badge{Name: "Teacher", Tier: models.BadgeBronze}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("create badge: %v", err)
	}

	award, err := d.GrantAward(badge.ID, user.ID, sender.ID)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	profile := profileOf(t, db, user.ID)
	if profile.BronzeBadges != 1 {
		t.Errorf("bronze_badges = %d, want 1", profile.BronzeBadges)
	}
	var got models.Badge
	db.First(&got, badge.ID)
	if got.Count != 1 {
		t.Errorf("badge count = %d, want 1", got.Count)
	}

	var note models.Note
	if err := db.Where("target_id = ? AND type = ?", user.ID, models.NoteAward).First(&note).Error; err != nil {
		t.Fatalf("award note missing: %v", err)
	}
	if !note.Unread {
		t.Error("award note should be unread")
	}

	if err := d.RevokeAward(award.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	profile = profileOf(t, db, user.ID)
	if profile.BronzeBadges != 0 {
		t.Errorf("bronze_badges after revoke = %d, want 0", profile.BronzeBadges)
	}
	db.First(&got, badge.ID)
	if got.Count != 0 {
		t.Errorf("badge count after revoke = %d, want 0", got.Count)
	}
}

func TestGrantAwardTierColumns(t *testing.T) {
	d, db := newTestDispatcher(t)
	sender := createUser(t, db, "mod")
	user := createUser(t, db, "alice")
	gold := models.Badge{Name: "Legend", Tier: models.BadgeGold}
	silver := models.Badge{Name: "Regular", Tier: models.BadgeSilver}
	if err := db.Create(&gold).Error; err != nil {
		t.Fatalf("create gold badge: %v", err)
	}
	if err := db.Create(&silver).Error; err != nil {
		t.Fatalf("create silver badge: %v", err)
	}

	if _, err := d.GrantAward(gold.ID, user.ID, sender.ID); err != nil {
		t.Fatalf("grant gold: %v", err)
	}
	if _, err := d.GrantAward(silver.ID, user.ID, sender.ID); err != nil {
		t.Fatalf("grant silver: %v", err)
	}
	profile := profileOf(t, db, user.ID)
	if profile.GoldBadges != 1 || profile.SilverBadges != 1 || profile.BronzeBadges != 0 {
		t.Errorf("badge counters = %d/%d/%d, want 0/1/1 bronze/silver/gold",
			profile.BronzeBadges, profile.SilverBadges, profile.GoldBadges)
	}
}

func TestUniqueBadgeGrantedOnce(t *testing.T) {
	d, db := newTestDispatcher(t)
	sender := createUser(t, db, "mod")
	user := createUser(t, db, "alice")
	badge := models.Badge{Name: "First Post", Tier: models.BadgeBronze, Unique: true}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("create badge: %v", err)
	}

	if _, err := d.GrantAward(badge.ID, user.ID, sender.ID); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if _, err := d.GrantAward(badge.ID, user.ID, sender.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second grant err = %v, want ErrConflict", err)
	}
	if got := profileOf(t, db, user.ID).BronzeBadges; got != 1 {
		t.Errorf("bronze_badges = %d, want 1", got)
	}
}

func TestRepeatableBadgeAccumulates(t *testing.T) {
	d, db := newTestDispatcher(t)
	sender := createUser(t, db, "mod")
	user := createUser(t, db, "alice")
	badge := models.Badge{Name: "Good Answer", Tier: models.BadgeBronze}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("create badge: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := d.GrantAward(badge.ID, user.ID, sender.ID); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}
	if got := profileOf(t, db, user.ID).BronzeBadges; got != 3 {
		t.Errorf("bronze_badges = %d, want 3", got)
	}
	var got models.Badge
	db.First(&got, badge.ID)
	if got.Count != 3 {
		t.Errorf("badge count = %d, want 3", got.Count)
	}
}

func TestGrantAwardUnknownBadge(t *testing.T) {
	d, db := newTestDispatcher(t)
	sender := createUser(t, db, "mod")
	user := createUser(t, db, "alice")

	if _, err := d.GrantAward(12345, user.ID, sender.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (*memoryStore, *memoryImages, *UserService) {
	mem := newMemoryStore()
	images := &memoryImages{}
	return mem, images, NewUserService(mem, mem, NewStandingService(mem), images, discard)
}

func TestUpdateProfile(t *testing.T) {
	mem, _, service := newUserFixture()
	alice := mem.addUser("alice")
	bob := mem.addUser("bob")
	ctx := context.Background()

	taken := bob.Username
	_, err := service.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	name := "  Alice Cooper "
	image := "https://img.example.com/a.png"
	user, err := service.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: &name, ProfileImage: &image})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", user.Username)
	assert.Equal(t, image, user.ProfileImage)
	assert.Equal(t, alice.Email, user.Email)
}

func TestUploadProfileImage(t *testing.T) {
	mem, images, service := newUserFixture()
	alice := mem.addUser("alice")
	ctx := context.Background()

	_, err := service.UploadProfileImage(ctx, alice.ID, ImageUpload{Filename: "a.txt", ContentType: "text/plain", Size: 3, Body: strings.NewReader("abc")})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = service.UploadProfileImage(ctx, alice.ID, ImageUpload{Filename: "a.png", ContentType: "image/png", Size: MaxProfileImageSize + 1, Body: strings.NewReader("")})
	assert.ErrorAs(t, err, &validation)

	user, err := service.UploadProfileImage(ctx, alice.ID, ImageUpload{Filename: "Face.PNG", ContentType: "image/png", Size: 4, Body: strings.NewReader("\x89PNG")})
	require.NoError(t, err)
	require.Len(t, images.keys, 1)
	assert.True(t, strings.HasPrefix(images.keys[0], "profiles/1/"))
	assert.True(t, strings.HasSuffix(images.keys[0], ".png"))
	assert.Equal(t, images.URL(images.keys[0]), user.ProfileImage)
	assert.Equal(t, user.ProfileImage, mem.users[alice.ID].ProfileImage)
	assert.Empty(t, images.deleted)

	_, err = service.UploadProfileImage(ctx, alice.ID, ImageUpload{Filename: "b.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.Equal(t, []string{images.keys[0]}, images.deleted)
}

func TestLimitsAndPenaltyCount(t *testing.T) {
	mem, _, service := newUserFixture()
	alice := mem.addUser("alice")
	ctx := context.Background()

	count, err := service.PenaltyCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	limits, err := service.Limits(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, limits.IsActive)
	assert.False(t, limits.Restricted)

	logs, err := service.ModerationLogs(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

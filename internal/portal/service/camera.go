package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/internal/portal/store"
	"github.com/kampunglabs/siskamling/pkg/cryptox"
	"github.com/kampunglabs/siskamling/pkg/idx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

// CameraService manages CCTV feeds. Stream URLs (RTSP, credentials embedded)
// are encrypted at rest and only decrypted transiently for an authorized
// viewer.
type CameraService struct {
	Store     store.Store
	Secretbox *cryptox.Secretbox
	Events    realtime.Broadcaster
	Notifier  Notifier
}

// NewCamera registers a camera, encrypting its stream URL before it touches
// the database.
func (s *CameraService) NewCamera(ctx context.Context, unitID, name, location, streamURL, createdBy string) (domain.CameraSummary, error) {
	if _, err := s.Store.Units().GetUnitByID(ctx, unitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CameraSummary{}, ErrNotFound
		}
		return domain.CameraSummary{}, err
	}

	secret, err := s.Secretbox.Encrypt(streamURL)
	if err != nil {
		return domain.CameraSummary{}, err
	}

	cam := domain.Camera{
		ID:           idx.New().String(),
		UnitID:       unitID,
		Name:         name,
		StreamSecret: secret,
		Location:     location,
		Status:       domain.CameraOffline,
		CreatedByID:  createdBy,
	}
	if err := s.Store.Cameras().CreateCamera(ctx, cam); err != nil {
		return domain.CameraSummary{}, err
	}
	return cam.Summary(), nil
}

// StreamURL returns the decrypted stream URL for a camera, provided the
// viewer's role and unit affiliation allow it. Admins see every camera; unit
// admins and residents only cameras of their own unit.
func (s *CameraService) StreamURL(ctx context.Context, viewer domain.AccountSummary, cameraID string) (string, error) {
	cam, err := s.Store.Cameras().GetCameraByID(ctx, cameraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	if viewer.Role != domain.RoleAdmin && viewer.UnitID != cam.UnitID {
		return "", ErrAccessDenied
	}

	url, err := s.Secretbox.Decrypt(cam.StreamSecret)
	if err != nil {
		// Wrong key or tampered ciphertext. Either way the secret is
		// unusable; surface the decryption failure, not the blob.
		return "", err
	}
	return url, nil
}

// ListByUnit returns client-safe camera summaries for one unit, subject to
// the same scoping as StreamURL.
func (s *CameraService) ListByUnit(ctx context.Context, viewer domain.AccountSummary, unitID string) ([]domain.CameraSummary, error) {
	if viewer.Role != domain.RoleAdmin && viewer.UnitID != unitID {
		return nil, ErrAccessDenied
	}

	cams, err := s.Store.Cameras().ListCamerasByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CameraSummary, 0, len(cams))
	for _, c := range cams {
		out = append(out, c.Summary())
	}
	return out, nil
}

// SetStatus transitions a camera online/offline, notifies unit members over
// the realtime hub, and pings operators when a camera drops.
func (s *CameraService) SetStatus(ctx context.Context, cameraID, status string) error {
	l := slogx.FromContext(ctx)
	if status != domain.CameraOnline && status != domain.CameraOffline {
		return fmt.Errorf("unknown camera status %q", status)
	}

	cam, err := s.Store.Cameras().GetCameraByID(ctx, cameraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if cam.Status == status {
		return nil
	}

	now := time.Now()
	if err := s.Store.Cameras().UpdateCameraStatus(ctx, cameraID, status, now); err != nil {
		return err
	}

	if s.Events != nil {
		s.Events.Publish([]string{
			realtime.RoleScope(domain.RoleAdmin),
			realtime.UnitScope(cam.UnitID),
		}, realtime.Event{
			Type: "camera.status_changed",
			Payload: map[string]string{
				"camera_id": cam.ID,
				"name":      cam.Name,
				"status":    status,
			},
		})
	}
	if status == domain.CameraOffline {
		notifyAsync(s.Notifier, l, fmt.Sprintf("Camera offline: %s (%s)", cam.Name, cam.Location))
	}

	l.Info("camera status changed",
		slog.String("camera_id", cam.ID), slog.String("status", status))
	return nil
}

// RotateSecret re-encrypts a camera's stream URL, e.g. after the device
// credentials change.
func (s *CameraService) RotateSecret(ctx context.Context, cameraID, streamURL string) error {
	secret, err := s.Secretbox.Encrypt(streamURL)
	if err != nil {
		return err
	}
	if err := s.Store.Cameras().UpdateCameraSecret(ctx, cameraID, secret); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

package merchant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"localcity/database"
	"localcity/models"
	"localcity/services/hours"
	"localcity/services/storage"
	"localcity/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[string]models.Merchant
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]models.Merchant{}} }

func (r *memRepo) Create(ctx context.Context, m *models.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = *m
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("merchant %s: %w", id, database.ErrNotFound)
	}
	return &m, nil
}

func (r *memRepo) GetBySlug(ctx context.Context, slug string) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byID {
		if m.Slug == slug {
			m := m
			return &m, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *memRepo) List(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Merchant
	for _, m := range r.byID {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) UpdatePage(ctx context.Context, id string, page models.MerchantPage) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	m.MerchantPage = page
	r.byID[id] = m
	return &m, nil
}

func (r *memRepo) UpdateFields(ctx context.Context, id string, fields bson.M) (*models.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "published":
			m.Published = v.(bool)
		case "hours":
			m.Hours = v.(hours.Week)
		case "gallery":
			m.Gallery = v.([]models.GalleryImage)
		case "logoUrl":
			m.LogoURL = v.(string)
		case "logoId":
			m.LogoID = v.(string)
		case "coverUrl":
			m.CoverURL = v.(string)
		case "coverId":
			m.CoverID = v.(string)
		case "rating":
			m.Rating = v.(float64)
		case "reviewCount":
			m.ReviewCount = v.(int)
		default:
			panic("unexpected field " + k)
		}
	}
	r.byID[id] = m
	return &m, nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	n       int
	deleted []string
}

func (s *memStorage) UploadImage(ctx context.Context, file io.Reader, folder, filename string) (storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	id := fmt.Sprintf("%s/img%d", folder, s.n)
	return storage.UploadResult{PublicID: id, URL: "https://cdn.test/" + id}, nil
}

func (s *memStorage) DeleteFile(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, publicID)
	return nil
}

func (s *memStorage) GetDownloadURL(ctx context.Context, publicID string) (string, error) {
	return "https://cdn.test/" + publicID, nil
}

func validPage() models.MerchantPage {
	return models.MerchantPage{
		Name:     "Rosa's Bakery & Café",
		Category: "food",
		Address:  models.Address{City: "Portland"},
		Hours: hours.Week{
			hours.Monday:  "7:00 AM - 3:00 PM",
			hours.Tuesday: "07:00-15:00",
			hours.Sunday:  "ask us",
		},
	}
}

func newService(t *testing.T) (*DefaultMerchantService, *memRepo, *memStorage) {
	t.Helper()
	repo, store := newMemRepo(), &memStorage{}
	svc, err := NewDefaultMerchantService(repo, store)
	require.NoError(t, err)
	return svc, repo, store
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Rosa's Bakery & Café": "rosa-s-bakery-caf",
		"  Hello   World  ":    "hello-world",
		"!!!":                  "merchant",
	}
	for in, want := range tests {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateMerchantNormalizesHours(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	m, warning, err := svc.CreateMerchant(ctx, validPage(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, "rosa-s-bakery-caf", m.Slug)
	require.Equal(t, models.DesignClassic, m.Design)
	require.Equal(t, "07:00-15:00", m.Hours[hours.Monday])
	require.Equal(t, "09:00-17:00", m.Hours[hours.Sunday])
	require.NotNil(t, warning)
	require.Equal(t, []hours.Weekday{hours.Sunday}, warning.Days)

	second, _, err := svc.CreateMerchant(ctx, validPage(), "owner-2")
	require.NoError(t, err)
	require.NotEqual(t, m.Slug, second.Slug)
	require.True(t, strings.HasPrefix(second.Slug, "rosa-s-bakery-caf-"))
}

func TestCreateMerchantValidates(t *testing.T) {
	svc, _, _ := newService(t)
	page := validPage()
	page.Name = ""

	_, _, err := svc.CreateMerchant(context.Background(), page, "")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestUploadImageReplacesLogo(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)

	first, err := svc.UploadImage(ctx, m.ID, ImageLogo, strings.NewReader("png"), "logo.png")
	require.NoError(t, err)
	require.NotEmpty(t, first.LogoURL)

	second, err := svc.UploadImage(ctx, m.ID, ImageLogo, strings.NewReader("png"), "logo2.png")
	require.NoError(t, err)
	require.NotEqual(t, first.LogoURL, second.LogoURL)
	require.Equal(t, []string{first.LogoID}, store.deleted)
}

func TestUploadImageWithoutStorage(t *testing.T) {
	svc, err := NewDefaultMerchantService(newMemRepo(), nil)
	require.NoError(t, err)

	_, err = svc.UploadImage(context.Background(), "m1", ImageLogo, strings.NewReader(""), "x.png")
	require.ErrorIs(t, err, utils.ErrUnavailable)
}

func galleryIDs(g []models.GalleryImage) []string {
	ids := make([]string, len(g))
	for i, img := range g {
		ids[i] = img.ID
	}
	return ids
}

func TestGalleryReorderAndRemove(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		m, err = svc.UploadImage(ctx, m.ID, ImageGallery, strings.NewReader("jpg"), fmt.Sprintf("g%d.jpg", i))
		require.NoError(t, err)
	}
	ids := galleryIDs(m.Gallery)
	require.Len(t, ids, 3)

	reordered, err := svc.ReorderGallery(ctx, m.ID, []string{ids[2], ids[0], ids[1]})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{ids[2], ids[0], ids[1]}, galleryIDs(reordered.Gallery)); diff != "" {
		t.Fatalf("gallery order mismatch (-want +got):\n%s", diff)
	}
	for i, img := range reordered.Gallery {
		require.Equal(t, i, img.Position)
	}

	_, err = svc.ReorderGallery(ctx, m.ID, []string{ids[0], ids[0], ids[1]})
	require.ErrorIs(t, err, utils.ErrInvalidInput)
	_, err = svc.ReorderGallery(ctx, m.ID, ids[:2])
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	removed, err := svc.RemoveImage(ctx, m.ID, ImageGallery, ids[0])
	require.NoError(t, err)
	require.Equal(t, []string{ids[2], ids[1]}, galleryIDs(removed.Gallery))
	require.Len(t, store.deleted, 1)

	_, err = svc.RemoveImage(ctx, m.ID, ImageGallery, "missing")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestSavePageKeepsStoredMedia(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)
	m, err = svc.UploadImage(ctx, m.ID, ImageGallery, strings.NewReader("a"), "a.jpg")
	require.NoError(t, err)
	m, err = svc.UploadImage(ctx, m.ID, ImageGallery, strings.NewReader("b"), "b.jpg")
	require.NoError(t, err)
	a, b := m.Gallery[0], m.Gallery[1]

	page, err := svc.LoadPage(ctx, m.ID)
	require.NoError(t, err)
	page.Tagline = "Fresh every morning"
	page.LogoURL = "https://evil.test/logo.png"
	page.Gallery = []models.GalleryImage{
		{ID: b.ID, Caption: "Croissants", URL: "https://evil.test/b.jpg"},
		{ID: "forged", URL: "https://evil.test/x.jpg"},
	}

	saved, err := svc.SavePage(ctx, m.ID, page)
	require.NoError(t, err)
	require.Equal(t, "Fresh every morning", saved.Tagline)
	require.Empty(t, saved.LogoURL)
	require.Equal(t, []string{b.ID, a.ID}, galleryIDs(saved.Gallery))
	require.Equal(t, "Croissants", saved.Gallery[0].Caption)
	require.Equal(t, b.URL, saved.Gallery[0].URL)
}

func TestSetPublishedRequiresCompletePage(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)

	published, err := svc.SetPublished(ctx, m.ID, true)
	require.NoError(t, err)
	require.True(t, published.Published)

	broken := repo.byID[m.ID]
	broken.Category = ""
	repo.byID[m.ID] = broken
	_, err = svc.SetPublished(ctx, m.ID, true)
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	unpublished, err := svc.SetPublished(ctx, m.ID, false)
	require.NoError(t, err)
	require.False(t, unpublished.Published)
}

func TestUpdateHoursRejectsUnknownDay(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)

	_, _, err = svc.UpdateHours(ctx, m.ID, hours.Week{"funday": "09:00-17:00"})
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	updated, warning, err := svc.UpdateHours(ctx, m.ID, hours.SetAllClosed(hours.Week{}))
	require.NoError(t, err)
	require.Nil(t, warning)
	require.Equal(t, hours.Closed, updated.Hours[hours.Friday])
}

func TestDeleteMerchantCleansMedia(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()
	m, _, err := svc.CreateMerchant(ctx, validPage(), "")
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, m.ID, ImageCover, strings.NewReader("c"), "c.jpg")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMerchant(ctx, m.ID))
	require.Len(t, store.deleted, 1)

	err = svc.DeleteMerchant(ctx, m.ID)
	require.True(t, errors.Is(err, database.ErrNotFound))
}

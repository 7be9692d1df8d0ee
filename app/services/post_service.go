package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
)

// PostDetail is a post together with its neighbours.
type PostDetail struct {
	Post       *models.Post
	Navigation models.Navigation
}

// PostService handles business logic for single posts
type PostService struct {
	client ContentClient
	loc    *time.Location
	logger *slog.Logger
}

// NewPostService creates a new PostService
func NewPostService(client ContentClient, cfg *config.Config, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		client: client,
		loc:    cfg.Location(),
		logger: logger,
	}
}

// GetPost fetches a post by UID. An empty ref reads published content.
func (s *PostService) GetPost(ctx context.Context, uid, ref string) (*models.Post, error) {
	doc, err := s.client.GetByUID(ctx, PostType, uid, prismic.GetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %q: %w", uid, err)
	}
	return toPost(doc)
}

// Get fetches a post and its previous and next posts by first publication date.
func (s *PostService) Get(ctx context.Context, uid, ref string) (*PostDetail, error) {
	post, err := s.GetPost(ctx, uid, ref)
	if err != nil {
		return nil, err
	}
	nav, err := s.Neighbours(ctx, post, ref)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Navigation: nav}, nil
}

// Neighbours finds at most one post published strictly before and one
// strictly after post. Unpublished posts have none.
func (s *PostService) Neighbours(ctx context.Context, post *models.Post, ref string) (models.Navigation, error) {
	nav := models.Navigation{
		PrevPost: []models.PostSummary{},
		NextPost: []models.PostSummary{},
	}
	if post.FirstPublicationDate == nil {
		return nav, nil
	}
	published := *post.FirstPublicationDate

	prev, err := s.neighbour(ctx,
		prismic.DateBefore(prismic.FieldFirstPublicationDate, published),
		prismic.Desc(prismic.FieldFirstPublicationDate), ref)
	if err != nil {
		return models.Navigation{}, fmt.Errorf("failed to fetch previous post: %w", err)
	}
	next, err := s.neighbour(ctx,
		prismic.DateAfter(prismic.FieldFirstPublicationDate, published),
		prismic.Asc(prismic.FieldFirstPublicationDate), ref)
	if err != nil {
		return models.Navigation{}, fmt.Errorf("failed to fetch next post: %w", err)
	}

	nav.PrevPost = prev
	nav.NextPost = next
	return nav, nil
}

func (s *PostService) neighbour(ctx context.Context, predicate, ordering, ref string) ([]models.PostSummary, error) {
	resp, err := s.client.Query(ctx,
		[]string{prismic.At(prismic.FieldType, PostType), predicate},
		prismic.QueryOptions{
			PageSize:  1,
			Orderings: []string{ordering},
			Ref:       ref,
		})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) > 1 {
		resp.Results = resp.Results[:1]
	}
	return models.FormatSummaries(toSummaries(resp.Results, s.logger), s.loc), nil
}

// DocumentPath resolves a document ID to its site path under ref. Documents
// that are not posts resolve to the home page.
func (s *PostService) DocumentPath(ctx context.Context, id, ref string) (string, error) {
	doc, err := s.client.GetByID(ctx, id, prismic.GetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("failed to resolve document %q: %w", id, err)
	}
	if doc.Type != PostType || doc.UID == "" {
		return "/", nil
	}
	return PostPath(doc.UID), nil
}

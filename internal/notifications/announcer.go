package notifications

import (
	"context"

	"beam/internal/models"
)

// Announcer fans post lifecycle changes out to Slack and Redis through a Dispatcher.
// All methods return immediately.
type Announcer struct {
	dispatcher *Dispatcher
	slack      *SlackPoster
	notifier   *Notifier
}

// NewAnnouncer wires the delivery channels. slack and notifier may be nil.
func NewAnnouncer(dispatcher *Dispatcher, slack *SlackPoster, notifier *Notifier) *Announcer {
	return &Announcer{dispatcher: dispatcher, slack: slack, notifier: notifier}
}

// PostCreated announces a new post on Slack and publishes a post_created event.
func (a *Announcer) PostCreated(post models.Post, authorName string) {
	if a.slack.Enabled() {
		a.dispatcher.Submit(Job{Channel: "slack", Run: func(ctx context.Context) error {
			return a.slack.PostCreated(ctx, &post, authorName)
		}})
	}
	a.publish(EventPostCreated, PostEventPayload{
		PostID:   post.ID,
		Title:    post.Title,
		AuthorID: post.AuthorID,
		ActorID:  post.AuthorID,
	})
}

// PostDeleted publishes a post_deleted event.
func (a *Announcer) PostDeleted(postID, actorID uint) {
	a.publish(EventPostDeleted, PostEventPayload{PostID: postID, ActorID: actorID})
}

// PostVisibilityChanged publishes post_hidden or post_unhidden.
func (a *Announcer) PostVisibilityChanged(postID, actorID uint, hidden bool) {
	event := EventPostUnhidden
	if hidden {
		event = EventPostHidden
	}
	a.publish(event, PostEventPayload{PostID: postID, ActorID: actorID})
}

func (a *Announcer) publish(eventType string, payload PostEventPayload) {
	if a.notifier == nil || a.notifier.rdb == nil {
		return
	}
	a.dispatcher.Submit(Job{Channel: "redis", Run: func(ctx context.Context) error {
		return a.notifier.PublishPostEvent(ctx, PostEvent{Type: eventType, Payload: payload})
	}})
}

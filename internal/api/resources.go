package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/robolab-console/internal/model"
)

// ResourceName identifies one of the platform's list endpoints.
type ResourceName string

const (
	ResourceNotifications   ResourceName = "notifications"
	ResourceAPKs            ResourceName = "apks"
	ResourceCourses         ResourceName = "courses"
	ResourceAddons          ResourceName = "addons"
	ResourceSubscriptions   ResourceName = "subscriptions"
	ResourceDances          ResourceName = "dances"
	ResourceActions         ResourceName = "actions"
	ResourceExpressions     ResourceName = "expressions"
	ResourceExtendedActions ResourceName = "extended-actions"
	ResourceSkills          ResourceName = "skills"
	ResourceOsmoCards       ResourceName = "osmo-cards"
	ResourceRobots          ResourceName = "robots"
	ResourceRobotModels     ResourceName = "robot-models"
)

// ResourceNames lists every known endpoint in display order.
var ResourceNames = []ResourceName{
	ResourceNotifications,
	ResourceAPKs,
	ResourceCourses,
	ResourceAddons,
	ResourceSubscriptions,
	ResourceDances,
	ResourceActions,
	ResourceExpressions,
	ResourceExtendedActions,
	ResourceSkills,
	ResourceOsmoCards,
	ResourceRobots,
	ResourceRobotModels,
}

// Path returns the collection path for the resource.
func (n ResourceName) Path() string { return "/" + string(n) }

func (c *Client) APKs() *Resource[model.APK] {
	return NewResource[model.APK](c, ResourceAPKs.Path())
}

func (c *Client) Courses() *Resource[model.Course] {
	return NewResource[model.Course](c, ResourceCourses.Path())
}

func (c *Client) Addons() *Resource[model.Addon] {
	return NewResource[model.Addon](c, ResourceAddons.Path())
}

func (c *Client) Subscriptions() *Resource[model.Subscription] {
	return NewResource[model.Subscription](c, ResourceSubscriptions.Path())
}

func (c *Client) Dances() *Resource[model.Dance] {
	return NewResource[model.Dance](c, ResourceDances.Path())
}

func (c *Client) Actions() *Resource[model.CatalogEntry] {
	return NewResource[model.CatalogEntry](c, ResourceActions.Path())
}

func (c *Client) Expressions() *Resource[model.CatalogEntry] {
	return NewResource[model.CatalogEntry](c, ResourceExpressions.Path())
}

func (c *Client) ExtendedActions() *Resource[model.CatalogEntry] {
	return NewResource[model.CatalogEntry](c, ResourceExtendedActions.Path())
}

func (c *Client) Skills() *Resource[model.CatalogEntry] {
	return NewResource[model.CatalogEntry](c, ResourceSkills.Path())
}

func (c *Client) OsmoCards() *Resource[model.OsmoCard] {
	return NewResource[model.OsmoCard](c, ResourceOsmoCards.Path())
}

func (c *Client) Robots() *Resource[model.Robot] {
	return NewResource[model.Robot](c, ResourceRobots.Path())
}

func (c *Client) RobotModels() *Resource[model.RobotModel] {
	return NewResource[model.RobotModel](c, ResourceRobotModels.Path())
}

// ListRaw fetches one page of any named resource without decoding items,
// for the CLI's generic list command.
func (c *Client) ListRaw(ctx context.Context, name ResourceName, q ListQuery) (*model.Page[map[string]any], error) {
	known := false
	for _, n := range ResourceNames {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown resource %q", name)
	}
	return NewResource[map[string]any](c, name.Path()).List(ctx, q)
}

// Notifications is the notification endpoint group.
type Notifications struct {
	client *Client
	list   *Resource[model.Notification]
}

// Notifications returns the notification endpoints.
func (c *Client) Notifications() *Notifications {
	return &Notifications{
		client: c,
		list:   NewResource[model.Notification](c, ResourceNotifications.Path()),
	}
}

// List fetches one page of an account's notifications, optionally filtered
// by read status ("unread", "read" or empty for all).
func (n *Notifications) List(
	ctx context.Context,
	accountID string,
	page, size int,
	status string,
) (*model.Page[model.Notification], error) {
	return n.list.List(ctx, ListQuery{
		Page: page,
		Size: size,
		Filters: map[string]string{
			"accountId": accountID,
			"status":    status,
		},
	})
}

// MarkRead flags one notification as read.
func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	return n.client.Patch(ctx, ResourceNotifications.Path()+"/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead flags every notification of an account as read.
func (n *Notifications) MarkAllRead(ctx context.Context, accountID string) error {
	q := url.Values{}
	q.Set("accountId", accountID)
	return n.client.Patch(ctx, ResourceNotifications.Path()+"/read-all?"+q.Encode(), nil, nil)
}

// Delete removes a notification.
func (n *Notifications) Delete(ctx context.Context, id string) error {
	return n.list.Delete(ctx, id)
}

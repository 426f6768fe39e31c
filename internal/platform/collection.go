package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/rflorenc/tablist/internal/models"
)

// Pagination is the paging block of a list response.
type Pagination struct {
	PageNumber     int `json:"pageNumber,string"`
	PageSize       int `json:"pageSize,string"`
	TotalAvailable int `json:"totalAvailable,string"`
}

// Collection accesses the resources of one kind on a signed-in site.
type Collection struct {
	client *Client
	siteID string
	kind   models.Kind
	ep     endpoint
}

func (c *Collection) sitePath(suffix string) string {
	return "/sites/" + c.siteID + "/" + c.ep.path + suffix
}

func (c *Collection) checkVersion() error {
	if !VersionAtLeast(c.client.apiVersion, c.ep.minVersion) {
		return fmt.Errorf("listing %ss requires REST API %s, server speaks %s",
			c.kind, c.ep.minVersion, c.client.apiVersion)
	}
	return nil
}

// fetchPage returns the raw elements of one page. Unpaged collections ignore
// number and return everything in a single response.
func (c *Collection) fetchPage(ctx context.Context, number int) ([]models.Resource, Pagination, error) {
	if err := c.checkVersion(); err != nil {
		return nil, Pagination{}, err
	}
	var params url.Values
	if c.ep.paged {
		params = url.Values{
			"pageSize":   {strconv.Itoa(c.client.pageSize)},
			"pageNumber": {strconv.Itoa(number)},
		}
	}

	var raw map[string]json.RawMessage
	if err := c.client.getJSON(ctx, c.sitePath(""), params, &raw); err != nil {
		return nil, Pagination{}, fmt.Errorf("listing %ss: %w", c.kind, err)
	}

	var page Pagination
	if p, ok := raw["pagination"]; ok {
		if err := json.Unmarshal(p, &page); err != nil {
			return nil, Pagination{}, fmt.Errorf("parsing pagination: %w", err)
		}
	}

	var elems []models.Resource
	if env, ok := raw[c.ep.listKey]; ok {
		var wrapper map[string][]models.Resource
		if err := json.Unmarshal(env, &wrapper); err != nil {
			return nil, Pagination{}, fmt.Errorf("parsing %s: %w", c.ep.listKey, err)
		}
		elems = wrapper[c.ep.elemKey]
	}
	if !c.ep.paged {
		page = Pagination{PageNumber: 1, PageSize: len(elems), TotalAvailable: len(elems)}
	}
	return elems, page, nil
}

// Page fetches one page of items, numbered from 1.
func (c *Collection) Page(ctx context.Context, number int) ([]models.Item, Pagination, error) {
	elems, page, err := c.fetchPage(ctx, number)
	if err != nil {
		return nil, Pagination{}, err
	}
	items := make([]models.Item, 0, len(elems))
	for _, res := range elems {
		item, err := toItem(c.kind, c.ep, res)
		if err != nil {
			return nil, Pagination{}, err
		}
		items = append(items, item)
	}
	return items, page, nil
}

// All lazily walks every page in server order. Each call starts again from
// the first page. Iteration stops after the first error.
func (c *Collection) All(ctx context.Context) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		fetched := 0
		for number := 1; ; number++ {
			items, page, err := c.Page(ctx, number)
			if err != nil {
				yield(models.Item{}, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			fetched += len(items)
			if !c.ep.paged || len(items) == 0 || fetched >= page.TotalAvailable {
				return
			}
		}
	}
}

// GetByID fetches a single item. Ids that are not LUIDs are reported as
// ErrNotFound without a request.
func (c *Collection) GetByID(ctx context.Context, id string) (models.Item, error) {
	if !models.ValidLUID(id) {
		return models.Item{}, fmt.Errorf("%s %q: %w", c.kind, id, ErrNotFound)
	}
	if err := c.checkVersion(); err != nil {
		return models.Item{}, err
	}
	if !c.ep.byID {
		return c.scanByID(ctx, id)
	}

	var raw map[string]json.RawMessage
	if err := c.client.getJSON(ctx, c.sitePath("/"+id), nil, &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Item{}, fmt.Errorf("getting %s %s: %w: %w", c.kind, id, ErrNotFound, err)
		}
		return models.Item{}, fmt.Errorf("getting %s %s: %w", c.kind, id, err)
	}
	body, ok := raw[c.ep.itemKey]
	if !ok {
		return models.Item{}, fmt.Errorf("%s %s: response has no %q: %w", c.kind, id, c.ep.itemKey, ErrNotFound)
	}
	var res models.Resource
	if err := json.Unmarshal(body, &res); err != nil {
		return models.Item{}, fmt.Errorf("parsing %s %s: %w", c.kind, id, err)
	}
	return toItem(c.kind, c.ep, res)
}

// scanByID pages through the collection looking for id.
func (c *Collection) scanByID(ctx context.Context, id string) (models.Item, error) {
	for item, err := range c.All(ctx) {
		if err != nil {
			return models.Item{}, err
		}
		if item.ID == id {
			return item, nil
		}
	}
	return models.Item{}, fmt.Errorf("%s %s: %w", c.kind, id, ErrNotFound)
}

// Tasks fetches the first page of tasks with their targets. Only valid on
// the task collection.
func (c *Collection) Tasks(ctx context.Context) ([]models.Task, error) {
	if c.kind != models.KindTask {
		return nil, fmt.Errorf("Tasks called on %s collection", c.kind)
	}
	elems, _, err := c.fetchPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(elems))
	for _, elem := range elems {
		task, err := parseTask(elem)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

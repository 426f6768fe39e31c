package platform

import (
	"fmt"
	"sort"

	"github.com/rflorenc/tablist/internal/models"
)

// endpoint describes how one resource kind is exposed by the REST API.
type endpoint struct {
	path       string   // collection path under /sites/{site-id}
	listKey    string   // list envelope key, e.g. "workbooks"
	elemKey    string   // element key inside the list envelope, e.g. "workbook"
	itemKey    string   // envelope key of a by-id response
	nameFields []string // fields tried in order for the display name
	byID       bool     // GET {path}/{id} exists; otherwise lookups scan the collection
	paged      bool     // honours pageSize/pageNumber
	minVersion string   // oldest REST API version serving this collection
}

// endpoints is the single resource-kind dispatch table. It is shared by
// top-level listing and by task target resolution.
var endpoints = [...]endpoint{
	models.KindWorkbook: {
		path: "workbooks", listKey: "workbooks", elemKey: "workbook", itemKey: "workbook",
		nameFields: []string{"name"}, byID: true, paged: true,
	},
	models.KindDatasource: {
		path: "datasources", listKey: "datasources", elemKey: "datasource", itemKey: "datasource",
		nameFields: []string{"name"}, byID: true, paged: true,
	},
	models.KindProject: {
		path: "projects", listKey: "projects", elemKey: "project", itemKey: "project",
		nameFields: []string{"name"}, paged: true,
	},
	models.KindView: {
		path: "views", listKey: "views", elemKey: "view", itemKey: "view",
		nameFields: []string{"name"}, byID: true, paged: true,
	},
	models.KindJob: {
		path: "jobs", listKey: "backgroundJobs", elemKey: "backgroundJob", itemKey: "job",
		nameFields: []string{"title", "jobType", "type"}, byID: true, paged: true,
	},
	models.KindTask: {
		path: "tasks/extractRefreshes", listKey: "tasks", elemKey: "task", itemKey: "task",
		byID: true, minVersion: "2.6",
	},
}

// endpointFor returns the table entry for kind. Every Kind has an entry, so
// a miss is a programming error.
func endpointFor(kind models.Kind) endpoint {
	if !kind.Valid() || int(kind) >= len(endpoints) || endpoints[kind].path == "" {
		panic(fmt.Sprintf("platform: no endpoint registered for %v", kind))
	}
	return endpoints[kind]
}

// toItem reduces a raw API object of the given kind to an Item.
func toItem(kind models.Kind, ep endpoint, res models.Resource) (models.Item, error) {
	if kind == models.KindTask {
		task, err := parseTask(res)
		if err != nil {
			return models.Item{}, err
		}
		return models.Item{ID: task.ID, Name: task.Type}, nil
	}
	item := models.Item{ID: res.String("id")}
	for _, field := range ep.nameFields {
		if name := res.String(field); name != "" {
			item.Name = name
			break
		}
	}
	if item.ID == "" {
		return models.Item{}, fmt.Errorf("%s without id in response", kind)
	}
	return item, nil
}

// parseTask decodes a task element. Tasks are wrapped in a single key naming
// their type, e.g. {"extractRefresh": {"id": ..., "workbook": {"id": ...}}}.
func parseTask(elem models.Resource) (models.Task, error) {
	keys := make([]string, 0, len(elem))
	for k := range elem {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, taskType := range keys {
		body, ok := elem[taskType].(map[string]interface{})
		if !ok {
			continue
		}
		res := models.Resource(body)
		task := models.Task{ID: res.String("id"), Type: taskType}
		if task.ID == "" {
			return models.Task{}, fmt.Errorf("%s task without id in response", taskType)
		}
		target, err := taskTarget(res)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
		}
		task.Target = target
		return task, nil
	}
	return models.Task{}, fmt.Errorf("task element has no body")
}

// taskTarget finds the object reference a task acts upon.
func taskTarget(body models.Resource) (models.Target, error) {
	for _, kind := range models.Kinds() {
		ref, ok := body[kind.String()].(map[string]interface{})
		if !ok {
			continue
		}
		id := models.Resource(ref).String("id")
		if id == "" {
			continue
		}
		return models.Target{Kind: kind, ID: id}, nil
	}
	return models.Target{}, fmt.Errorf("no recognised target")
}

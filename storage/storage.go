package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"crewboard/domain"
)

// All board entities share one partition; the board is single-tenant and
// each entity collection lives in its own table.
const boardPartition = "board"

// TableStore persists the board's entity collections in Azure Table
// storage. The engine reads everything at boot and writes through its two
// mutations; creation and deletion of entities happen through other
// collaborators sharing the same tables.
type TableStore struct {
	tasks      *aztables.Client
	reminders  *aztables.Client
	categories *aztables.Client
	contacts   *aztables.Client
}

// New creates a TableStore from the given connection string.
func New(connStr, tasksTable, remindersTable, categoriesTable, contactsTable string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{
		tasks:      svc.NewClient(tasksTable),
		reminders:  svc.NewClient(remindersTable),
		categories: svc.NewClient(categoriesTable),
		contacts:   svc.NewClient(contactsTable),
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	CategoryID  string `json:"CategoryId"`
	// Assignees is the JSON-encoded array of contact ids.
	Assignees string `json:"Assignees"`
	CreatedAt int64  `json:"CreatedAt"`
	UpdatedAt int64  `json:"UpdatedAt"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	assignees := domain.NewIDSet()
	if ent.Assignees != "" {
		if err := json.Unmarshal([]byte(ent.Assignees), &assignees); err != nil {
			return domain.Task{}, err
		}
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		CategoryID:  ent.CategoryID,
		AssigneeIDs: assignees,
		CreatedAt:   time.Unix(0, ent.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, ent.UpdatedAt).UTC(),
	}, nil
}

// LoadTasks retrieves every task, ordered by creation time.
func (s *TableStore) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + boardPartition + "'"
	pager := s.tasks.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			t, err := decodeTaskEntity(raw)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

type reminderEntity struct {
	aztables.Entity
	TaskID string `json:"TaskId"`
	Date   int64  `json:"Date"`
	Sent   bool   `json:"Sent"`
}

func decodeReminderEntity(data []byte) (domain.Reminder, error) {
	var ent reminderEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Reminder{}, err
	}
	return domain.Reminder{
		ID:     ent.RowKey,
		TaskID: ent.TaskID,
		Date:   time.Unix(0, ent.Date).UTC(),
		Sent:   ent.Sent,
	}, nil
}

// LoadReminders retrieves every reminder, ordered by due date.
func (s *TableStore) LoadReminders(ctx context.Context) ([]domain.Reminder, error) {
	filter := "PartitionKey eq '" + boardPartition + "'"
	pager := s.reminders.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	reminders := []domain.Reminder{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			r, err := decodeReminderEntity(raw)
			if err != nil {
				return nil, err
			}
			reminders = append(reminders, r)
		}
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		if !reminders[i].Date.Equal(reminders[j].Date) {
			return reminders[i].Date.Before(reminders[j].Date)
		}
		return reminders[i].ID < reminders[j].ID
	})
	return reminders, nil
}

type categoryEntity struct {
	aztables.Entity
	Name string `json:"Name"`
}

type contactEntity struct {
	aztables.Entity
	Name string `json:"Name"`
	Role string `json:"Role"`
}

// LoadCategories retrieves every category.
func (s *TableStore) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	filter := "PartitionKey eq '" + boardPartition + "'"
	pager := s.categories.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	categories := []domain.Category{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent categoryEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			categories = append(categories, domain.Category{ID: ent.RowKey, Name: ent.Name})
		}
	}
	return categories, nil
}

// LoadContacts retrieves every contact.
func (s *TableStore) LoadContacts(ctx context.Context) ([]domain.Contact, error) {
	filter := "PartitionKey eq '" + boardPartition + "'"
	pager := s.contacts.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	contacts := []domain.Contact{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent contactEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			contacts = append(contacts, domain.Contact{ID: ent.RowKey, Name: ent.Name, Role: domain.Role(ent.Role)})
		}
	}
	return contacts, nil
}

// SaveTaskStatus merge-updates one task's status and update timestamp.
func (s *TableStore) SaveTaskStatus(ctx context.Context, taskID string, status domain.Status, updatedAt time.Time) error {
	ent := map[string]any{
		"PartitionKey": boardPartition,
		"RowKey":       taskID,
		"Status":       string(status),
		"UpdatedAt":    updatedAt.UnixNano(),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.tasks.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	return err
}

// SaveReminderSent merge-updates one reminder's sent flag to true.
func (s *TableStore) SaveReminderSent(ctx context.Context, reminderID string) error {
	ent := map[string]any{
		"PartitionKey": boardPartition,
		"RowKey":       reminderID,
		"Sent":         true,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.reminders.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	return err
}

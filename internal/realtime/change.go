package realtime

import (
	"context"
	"headshots/internal/entity/dto"
)

type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

type Table string

const (
	TableModels  Table = "models"
	TableSamples Table = "samples"
	TableImages  Table = "images"
)

// Change is one committed row change, scoped to the owning user.
type Change struct {
	Event   Event           `json:"event"`
	Table   Table           `json:"table"`
	UserID  string          `json:"user_id"`
	ModelID uint            `json:"model_id"`
	Model   *dto.ModelView  `json:"model,omitempty"`
	Sample  *dto.SampleView `json:"sample,omitempty"`
	Image   *dto.ImageView  `json:"image,omitempty"`
}

// Broker fans committed changes out to the subscribers of a user.
type Broker interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe returns a channel of changes for userID and a func that
	// releases the subscription. The channel may be closed by the broker
	// when the underlying transport goes away.
	Subscribe(ctx context.Context, userID string) (<-chan Change, func(), error)
	Close() error
}

func ModelChange(event Event, view dto.ModelView) Change {
	return Change{Event: event, Table: TableModels, UserID: view.UserID, ModelID: view.ID, Model: &view}
}

func SampleChange(event Event, userID string, sample dto.SampleView) Change {
	return Change{Event: event, Table: TableSamples, UserID: userID, ModelID: sample.ModelID, Sample: &sample}
}

func ImageChange(event Event, userID string, image dto.ImageView) Change {
	return Change{Event: event, Table: TableImages, UserID: userID, ModelID: image.ModelID, Image: &image}
}

package realtime

import (
	"headshots/internal/entity/dto"
	"sort"
)

// ModelSet holds one user's models keyed by id and folds changes into
// them in place. Not safe for concurrent use.
type ModelSet struct {
	models map[uint]*dto.ModelView
}

func NewModelSet(views []dto.ModelView) *ModelSet {
	set := &ModelSet{models: make(map[uint]*dto.ModelView, len(views))}
	for i := range views {
		view := cloneView(views[i])
		set.models[view.ID] = &view
	}
	return set
}

func (s *ModelSet) Len() int {
	return len(s.models)
}

func (s *ModelSet) Get(id uint) (dto.ModelView, bool) {
	view, ok := s.models[id]
	if !ok {
		return dto.ModelView{}, false
	}
	return cloneView(*view), true
}

// List returns the models newest first.
func (s *ModelSet) List() []dto.ModelView {
	out := make([]dto.ModelView, 0, len(s.models))
	for _, view := range s.models {
		out = append(out, cloneView(*view))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Apply merges a change. It returns the resulting model, whether the model
// was removed, and whether anything changed at all.
func (s *ModelSet) Apply(change Change) (dto.ModelView, bool, bool) {
	switch change.Table {
	case TableModels:
		return s.applyModel(change)
	case TableSamples:
		return s.applyChild(change, func(view *dto.ModelView) bool {
			if change.Sample == nil {
				return false
			}
			return mergeSample(view, change.Event, *change.Sample)
		})
	case TableImages:
		return s.applyChild(change, func(view *dto.ModelView) bool {
			if change.Image == nil {
				return false
			}
			return mergeImage(view, change.Event, *change.Image)
		})
	}
	return dto.ModelView{}, false, false
}

func (s *ModelSet) applyModel(change Change) (dto.ModelView, bool, bool) {
	id := change.ModelID
	if change.Model != nil && change.Model.ID != 0 {
		id = change.Model.ID
	}

	if change.Event == EventDelete {
		existing, ok := s.models[id]
		if !ok {
			return dto.ModelView{ID: id}, true, false
		}
		delete(s.models, id)
		return cloneView(*existing), true, true
	}

	if change.Model == nil {
		return dto.ModelView{}, false, false
	}
	incoming := cloneView(*change.Model)
	if existing, ok := s.models[id]; ok {
		// 事件只带模型行时保留已有的样本与结果
		if change.Model.Samples == nil {
			incoming.Samples = existing.Samples
		}
		if change.Model.Images == nil {
			incoming.Images = existing.Images
		}
	}
	if incoming.Samples == nil {
		incoming.Samples = []dto.SampleView{}
	}
	if incoming.Images == nil {
		incoming.Images = []dto.ImageView{}
	}
	s.models[id] = &incoming
	return cloneView(incoming), false, true
}

func (s *ModelSet) applyChild(change Change, merge func(*dto.ModelView) bool) (dto.ModelView, bool, bool) {
	view, ok := s.models[change.ModelID]
	if !ok {
		return dto.ModelView{}, false, false
	}
	if !merge(view) {
		return cloneView(*view), false, false
	}
	return cloneView(*view), false, true
}

func mergeSample(view *dto.ModelView, event Event, sample dto.SampleView) bool {
	for i := range view.Samples {
		if view.Samples[i].ID != sample.ID {
			continue
		}
		if event == EventDelete {
			view.Samples = append(view.Samples[:i], view.Samples[i+1:]...)
			return true
		}
		if view.Samples[i] == sample {
			return false
		}
		view.Samples[i] = sample
		return true
	}
	if event == EventDelete {
		return false
	}
	view.Samples = append(view.Samples, sample)
	return true
}

func mergeImage(view *dto.ModelView, event Event, image dto.ImageView) bool {
	for i := range view.Images {
		if view.Images[i].ID != image.ID {
			continue
		}
		if event == EventDelete {
			view.Images = append(view.Images[:i], view.Images[i+1:]...)
			return true
		}
		view.Images[i] = image
		return true
	}
	if event == EventDelete {
		return false
	}
	view.Images = append(view.Images, image)
	return true
}

func cloneView(view dto.ModelView) dto.ModelView {
	out := view
	if view.Samples != nil {
		out.Samples = make([]dto.SampleView, len(view.Samples))
		copy(out.Samples, view.Samples)
	}
	if view.Images != nil {
		out.Images = make([]dto.ImageView, len(view.Images))
		copy(out.Images, view.Images)
	}
	return out
}

package converter

import (
	"headshots/internal/entity/db"
	"headshots/internal/entity/dto"
)

func SampleToView(s *db.Sample) dto.SampleView {
	return dto.SampleView{ID: s.ID, ModelID: s.ModelID, URI: s.URI}
}

func ImageToView(img *db.Image) dto.ImageView {
	return dto.ImageView{ID: img.ID, ModelID: img.ModelID, URI: img.URI, CreatedAt: img.CreatedAt}
}

// ModelToView converts a db.Model (with preloaded samples/images) to dto.ModelView.
func ModelToView(m *db.Model) dto.ModelView {
	if m == nil {
		return dto.ModelView{}
	}
	view := dto.ModelView{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		Type:      m.Type,
		Status:    m.Status,
		TuneID:    m.TuneID,
		PackID:    m.PackID,
		CreatedAt: m.CreatedAt,
		Samples:   make([]dto.SampleView, 0, len(m.Samples)),
		Images:    make([]dto.ImageView, 0, len(m.Images)),
	}
	for i := range m.Samples {
		view.Samples = append(view.Samples, SampleToView(&m.Samples[i]))
	}
	for i := range m.Images {
		view.Images = append(view.Images, ImageToView(&m.Images[i]))
	}
	return view
}

// ModelsToViews converts a slice of db.Model to dto.ModelView.
func ModelsToViews(models []db.Model) []dto.ModelView {
	views := make([]dto.ModelView, len(models))
	for i := range models {
		views[i] = ModelToView(&models[i])
	}
	return views
}

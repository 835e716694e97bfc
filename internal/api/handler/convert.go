package handler

import (
	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

func toAPIPoint(p geo.Point) models.Point {
	return models.Point{Lat: p.Lat, Lon: p.Lon}
}

func fromAPIPoint(p models.Point) geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

func toAPILocation(l geo.Location) models.Location {
	out := models.Location{Lat: l.Lat, Lon: l.Lon, Accuracy: l.Accuracy}
	if !l.CapturedAt.IsZero() {
		ts := models.Timestamp(l.CapturedAt)
		out.Timestamp = &ts
	}
	return out
}

func fromAPILocation(l models.Location) geo.Location {
	out := geo.Location{Point: geo.Point{Lat: l.Lat, Lon: l.Lon}, Accuracy: l.Accuracy}
	if l.Timestamp != nil {
		out.CapturedAt = l.Timestamp.Time()
	}
	return out
}

func toAPIContacts(contacts []boat.EmergencyContact) []models.EmergencyContact {
	out := make([]models.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, models.EmergencyContact{
			Name:         c.Name,
			Phone:        c.Phone,
			Email:        c.Email,
			Relationship: c.Relationship,
			IsPrimary:    c.Primary,
		})
	}
	return out
}

func fromAPIContacts(contacts []models.EmergencyContact) []boat.EmergencyContact {
	out := make([]boat.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, boat.EmergencyContact{
			Name:         c.Name,
			Phone:        c.Phone,
			Email:        c.Email,
			Relationship: c.Relationship,
			Primary:      c.IsPrimary,
		})
	}
	return out
}

func toAPIBoat(b *boat.Boat) models.Boat {
	out := models.Boat{
		BoatID:            b.ID,
		OwnerName:         b.OwnerName,
		Phone:             b.Phone,
		Role:              string(b.Role),
		Language:          string(b.Language),
		IsActive:          b.Active,
		EmergencyContacts: toAPIContacts(b.EmergencyContacts),
		CreatedAt:         models.Timestamp(b.CreatedAt),
		UpdatedAt:         models.Timestamp(b.UpdatedAt),
	}
	if b.LastKnownLocation != nil {
		loc := toAPILocation(*b.LastKnownLocation)
		out.LastKnownLocation = &loc
	}
	return out
}

func toAPIMessage(m *chat.Message) models.ChatMessage {
	return models.ChatMessage{
		ID:              m.ID,
		ThreadID:        m.ThreadID,
		FromBoatID:      m.FromBoat,
		ToBoatID:        m.ToBoat,
		Message:         m.Body,
		MessageType:     string(m.Kind),
		Timestamp:       models.Timestamp(m.SentAt),
		IsDelivered:     m.Delivered,
		DeliveredAt:     models.TimestampPtr(m.DeliveredAt),
		IsRead:          m.Read,
		ReadAt:          models.TimestampPtr(m.ReadAt),
		TransportStatus: string(m.TransportStatus),
	}
}

func toAPIMessages(msgs []*chat.Message) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toAPIMessage(m))
	}
	return out
}

func toAPIBroadcast(res *chat.BroadcastResult) models.ChatBroadcastResponse {
	out := models.ChatBroadcastResponse{
		Sent:    res.Sent,
		Failed:  res.Failed,
		Results: make([]models.ChatBroadcastResult, 0, len(res.Recipients)),
	}
	for _, rcpt := range res.Recipients {
		item := models.ChatBroadcastResult{ToBoatID: rcpt.Boat, Success: rcpt.Err == nil}
		if rcpt.Err != nil {
			item.Error = rcpt.Err.Error()
		}
		if rcpt.Message != nil {
			m := toAPIMessage(rcpt.Message)
			item.MessageID = m.ID
			item.Message = &m
		}
		out.Results = append(out.Results, item)
	}
	return out
}

func toAPIDeliveries(deliveries []dispatch.Delivery) []models.DeliveryResult {
	out := make([]models.DeliveryResult, 0, len(deliveries))
	for _, d := range deliveries {
		item := models.DeliveryResult{
			TargetKind: string(d.TargetKind),
			Target:     d.Target,
			TargetName: d.TargetName,
			Channel:    string(d.Channel),
			Provider:   d.Provider,
			Success:    d.OK(),
			Reference:  d.Ref,
		}
		if d.Err != nil {
			item.Error = d.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func toAPICase(c *sos.Case) models.SOSCase {
	return models.SOSCase{
		ID:                c.ID,
		BoatID:            c.Boat,
		RequestedBy:       c.Requester,
		OwnerName:         c.OwnerName,
		Phone:             c.Phone,
		Location:          toAPILocation(c.Location),
		Message:           c.Message,
		Status:            string(c.Status),
		Priority:          c.Priority,
		EmergencyContacts: toAPIContacts(c.EmergencyContacts),
		VoiceText:         c.VoiceText,
		CreatedAt:         models.Timestamp(c.CreatedAt),
		UpdatedAt:         models.Timestamp(c.UpdatedAt),
		ResolvedAt:        models.TimestampPtr(c.ResolvedAt),
		ResolvedBy:        c.ResolvedBy,
		Notes:             c.Notes,
	}
}

func toAPICases(cases []*sos.Case) models.SOSCaseList {
	items := make([]models.SOSCase, 0, len(cases))
	for _, c := range cases {
		items = append(items, toAPICase(c))
	}
	return models.SOSCaseList{Items: items, Meta: models.ListMeta{Count: len(items)}}
}

func toAPIAttempts(attempts []*audit.Attempt) models.NotificationAttemptList {
	items := make([]models.NotificationAttempt, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, models.NotificationAttempt{
			ID:          a.ID,
			Event:       string(a.Event),
			TargetKind:  string(a.TargetKind),
			Target:      a.Target,
			TargetName:  a.TargetName,
			Channel:     string(a.Channel),
			Provider:    a.Provider,
			Status:      string(a.Status),
			ProviderRef: a.ProviderRef,
			Error:       a.Error,
			Actor:       a.Actor,
			Timestamp:   models.Timestamp(a.Timestamp),
		})
	}
	return models.NotificationAttemptList{Items: items, Meta: models.ListMeta{Count: len(items)}}
}

func toAPIAlert(a *alert.Alert) models.Alert {
	return models.Alert{
		ID:                 a.ID,
		Type:               string(a.Type),
		Severity:           string(a.Severity),
		Title:              a.Title,
		Description:        a.Description,
		AffectedAreas:      a.AffectedAreas,
		EstimatedTime:      models.Timestamp(a.EstimatedTime),
		RecommendedActions: a.RecommendedActions,
		VoiceAlertText:     a.VoiceText,
		VoiceURL:           a.VoiceURL,
		IsActive:           a.Active,
		AcknowledgedBy:     a.AcknowledgedBy,
		CreatedBy:          a.CreatedBy,
		CreatedAt:          models.Timestamp(a.CreatedAt),
		UpdatedAt:          models.Timestamp(a.UpdatedAt),
		DeactivatedAt:      models.TimestampPtr(a.DeactivatedAt),
	}
}

func toAPIInboxEntry(e *inbox.Entry) models.InboxEntry {
	out := models.InboxEntry{
		ID:             e.ID,
		BoatID:         e.Boat,
		Kind:           string(e.Kind),
		SourceID:       e.SourceID,
		Title:          e.Title,
		Body:           e.Body,
		Severity:       e.Severity,
		VoiceText:      e.VoiceText,
		VoiceURL:       e.VoiceURL,
		IsActive:       e.Active,
		IsRead:         e.Read,
		ReadAt:         models.TimestampPtr(e.ReadAt),
		IsAcknowledged: e.Acknowledged,
		AcknowledgedAt: models.TimestampPtr(e.AcknowledgedAt),
		ReceivedAt:     models.Timestamp(e.ReceivedAt),
	}
	if e.Location != nil {
		p := toAPIPoint(*e.Location)
		out.Location = &p
	}
	return out
}

func toAPIPort(p *navigation.Port) models.Port {
	return models.Port{
		ID:            p.ID,
		Name:          p.Name,
		LocalizedName: p.LocalizedName,
		Location:      toAPIPoint(p.Location),
		Capacity:      p.Capacity,
		Facilities:    p.Facilities,
		IsActive:      p.Active,
		CreatedAt:     models.Timestamp(p.CreatedAt),
		UpdatedAt:     models.Timestamp(p.UpdatedAt),
		DeactivatedAt: models.TimestampPtr(p.DeactivatedAt),
	}
}

func toAPIRisk(a *risk.Assessment) *models.RiskAssessment {
	if a == nil {
		return nil
	}
	return &models.RiskAssessment{
		Level:      string(a.Level),
		Color:      a.Color,
		Score:      a.Score,
		Reasons:    a.Reasons,
		ComputedAt: models.Timestamp(a.ComputedAt),
	}
}

func toAPIAdvisory(a *navigation.Advisory) models.NavigationAdvisory {
	out := models.NavigationAdvisory{
		BoatID:          a.Boat,
		CurrentLocation: toAPILocation(a.CurrentLocation),
		DistanceKm:      a.DistanceKm,
		BearingDeg:      a.BearingDeg,
		ETAMinutes:      a.ETAMinutes,
		Risk:            toAPIRisk(a.Risk),
		ComputedAt:      models.Timestamp(a.ComputedAt),
	}
	if a.NearestPort != nil {
		p := toAPIPort(a.NearestPort)
		out.NearestPort = &p
	}
	return out
}

func toAPIWeather(o *weather.Observation) models.Weather {
	return models.Weather{
		Location:      models.Point{Lat: o.Lat, Lon: o.Lon},
		Temperature:   o.Temperature,
		Humidity:      o.Humidity,
		WindSpeed:     o.WindSpeed,
		WindDirection: o.WindDirection,
		WindGust:      o.WindGust,
		Pressure:      o.Pressure,
		Visibility:    o.VisibilityKm,
		Condition:     string(o.Condition),
		Description:   o.Description,
		SeaCondition:  string(risk.SeaConditionFor(o.WindSpeed)),
		ObservedAt:    models.Timestamp(o.ObservedAt),
	}
}

func toAPIForecast(f *weather.Forecast) models.Forecast {
	out := models.Forecast{
		Location: models.Point{Lat: f.Lat, Lon: f.Lon},
		Entries:  make([]models.ForecastEntry, 0, len(f.Entries)),
	}
	for i := range f.Entries {
		e := &f.Entries[i]
		out.Entries = append(out.Entries, models.ForecastEntry{
			Time:          models.Timestamp(e.Time),
			Temperature:   e.Temperature,
			Humidity:      e.Humidity,
			WindSpeed:     e.WindSpeed,
			WindDirection: e.WindDirection,
			WindGust:      e.WindGust,
			Condition:     string(e.Condition),
			Description:   e.Description,
			PrecipProb:    e.PrecipProb,
			SeaCondition:  string(e.SeaCondition()),
		})
	}
	return out
}

func toAPIBoatWeather(c *weather.BoatConditions) models.BoatWeather {
	s := c.Snapshot
	return models.BoatWeather{
		Weather: models.WeatherSnapshot{
			BoatID:        s.Boat,
			WindSpeed:     s.WindSpeed,
			WindDirection: s.WindDirection,
			Temperature:   s.Temperature,
			Humidity:      s.Humidity,
			Pressure:      s.Pressure,
			Visibility:    s.VisibilityKm,
			SeaCondition:  string(s.SeaCondition),
			TideSpeed:     s.TideSpeed,
			Description:   s.Description,
			Location:      toAPIPoint(s.Location),
			CapturedAt:    models.Timestamp(s.CapturedAt),
		},
		Risk: toAPIRisk(c.Assessment),
	}
}

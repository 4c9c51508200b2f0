package store

import (
	"context"

	"github.com/farellandr/sahmticket/internal/models"
	"github.com/google/uuid"
)

type AdminStats struct {
	TotalRevenue     int64 `json:"totalRevenue"`
	TicketsSold      int64 `json:"ticketsSold"`
	ActiveOrganizers int64 `json:"activeOrganizers"`
	TotalEvents      int64 `json:"totalEvents"`
}

type EventRevenue struct {
	EventID     uuid.UUID `json:"event_id"`
	Title       string    `json:"title"`
	TicketsSold int64     `json:"tickets_sold"`
	Revenue     int64     `json:"revenue"`
}

type Analytics struct {
	TotalRevenue int64          `json:"totalRevenue"`
	Events       []EventRevenue `json:"events"`
}

type OrganizerStats struct {
	TotalRevenue int64 `json:"totalRevenue"`
	TotalTickets int64 `json:"totalTickets"`
	ActiveEvents int64 `json:"activeEvents"`
	TotalEvents  int64 `json:"totalEvents"`
}

func (s *Store) AdminStats(ctx context.Context) (AdminStats, error) {
	var stats AdminStats
	db := s.db.WithContext(ctx)

	var sums struct {
		Revenue int64
		Tickets int64
	}
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COALESCE(SUM(quantity), 0) AS tickets").
		Where("status = ?", models.OrderStatusPaid).
		Scan(&sums).Error
	if err != nil {
		return stats, err
	}
	stats.TotalRevenue = sums.Revenue
	stats.TicketsSold = sums.Tickets

	err = db.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", models.RoleOrganizer).
		Count(&stats.ActiveOrganizers).Error
	if err != nil {
		return stats, err
	}

	err = db.Model(&models.Event{}).Count(&stats.TotalEvents).Error
	return stats, err
}

// Analytics sums event revenue, optionally for a single organizer.
func (s *Store) Analytics(ctx context.Context, organizerID *uuid.UUID) (Analytics, error) {
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if organizerID != nil {
		query = query.Where("organizer_id = ?", *organizerID)
	}

	var rows []EventRevenue
	err := query.
		Select("id AS event_id, title, tickets_sold, revenue").
		Order("revenue DESC, title ASC").
		Scan(&rows).Error
	if err != nil {
		return Analytics{}, err
	}

	out := Analytics{Events: rows}
	for _, row := range rows {
		out.TotalRevenue += row.Revenue
	}
	if out.Events == nil {
		out.Events = []EventRevenue{}
	}
	return out, nil
}

func (s *Store) OrganizerStats(ctx context.Context, organizerID uuid.UUID) (OrganizerStats, error) {
	var stats OrganizerStats
	err := s.db.WithContext(ctx).Model(&models.Event{}).
		Select(`COALESCE(SUM(revenue), 0) AS total_revenue,
			COALESCE(SUM(tickets_sold), 0) AS total_tickets,
			COUNT(*) FILTER (WHERE status = ?) AS active_events,
			COUNT(*) AS total_events`, models.EventStatusLive).
		Where("organizer_id = ?", organizerID).
		Scan(&stats).Error
	return stats, err
}

// Attendees lists the buyers of an organizer's events, newest first. eventID
// narrows the list to one event.
func (s *Store) Attendees(ctx context.Context, organizerID uuid.UUID, eventID *uuid.UUID, page, limit int) ([]models.Attendee, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Attendee{}).
		Joins("JOIN events ON events.id = attendees.event_id").
		Where("events.organizer_id = ?", organizerID)
	if eventID != nil {
		query = query.Where("attendees.event_id = ?", *eventID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var attendees []models.Attendee
	err := query.
		Order("attendees.created_at DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&attendees).Error
	return attendees, total, err
}

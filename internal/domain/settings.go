package domain

import "fmt"

type ChannelSettings struct {
	OS      bool `json:"os"`
	Systray bool `json:"systray"`
	InApp   bool `json:"inApp"`
}

type NotificationSettings struct {
	Associations ChannelSettings `json:"associations"`
	Offers       ChannelSettings `json:"offers"`
	Reflections  ChannelSettings `json:"reflections"`
	Comments     ChannelSettings `json:"comments"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Associations: ChannelSettings{InApp: true},
		Offers:       ChannelSettings{Systray: true, InApp: true},
		Reflections:  ChannelSettings{Systray: true, InApp: true},
		Comments:     ChannelSettings{Systray: true, InApp: true},
	}
}

func EnabledNotificationSettings() NotificationSettings {
	return DefaultNotificationSettings()
}

func DisabledNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Associations: ChannelSettings{InApp: true},
		Offers:       ChannelSettings{InApp: true},
		Reflections:  ChannelSettings{InApp: true},
		Comments:     ChannelSettings{InApp: true},
	}
}

func (s NotificationSettings) For(kind CollectionKind) (ChannelSettings, error) {
	switch kind {
	case CollectionAssociations:
		return s.Associations, nil
	case CollectionOffers:
		return s.Offers, nil
	case CollectionReflections:
		return s.Reflections, nil
	case CollectionComments, CollectionReflectionComments:
		return s.Comments, nil
	default:
		return ChannelSettings{}, fmt.Errorf("unknown collection kind %q", kind)
	}
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

type Notification struct {
	Craving string         `json:"craving"`
	Kind    CollectionKind `json:"kind"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Urgency Urgency        `json:"urgency"`
	Count   int            `json:"count"`
}

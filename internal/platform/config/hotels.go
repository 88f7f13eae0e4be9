package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

//go:embed hotels.schema.json
var hotelsSchemaJSON []byte

const hotelsSchemaURL = "hotels.schema.json"

var hotelsSchema = mustCompileHotelsSchema()

func mustCompileHotelsSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(hotelsSchemaURL, bytes.NewReader(hotelsSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add hotels schema: %v", err))
	}
	schema, err := compiler.Compile(hotelsSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile hotels schema: %v", err))
	}
	return schema
}

// DefaultHotels is the monitored set used when no hotels file is configured.
func DefaultHotels(timezone string) []model.HotelConfig {
	return []model.HotelConfig{
		{
			HotelID:    "maison_pavlov",
			HotelName:  "Maison Pavlov",
			Provider:   model.ProviderSecureDirectNumbered,
			BookingURL: "https://www.secure-direct-hotel-booking.com/module_booking_engine/index.php?id_etab=46249f1124e703947d3298deefeb8493&langue=francais",
			TotalRooms: 8,
			Timezone:   timezone,
		},
		{
			HotelID:    "les_seraphines",
			HotelName:  "Les Séraphines",
			Provider:   model.ProviderThaisCalendar,
			BookingURL: "https://lesseraphines.thais-hotel.com/direct-booking/calendar",
			TotalRooms: 5,
			Timezone:   timezone,
		},
		{
			HotelID:    "villa_victor_louis",
			HotelName:  "Villa Victor Louis",
			Provider:   model.ProviderSecureDirectStock,
			BookingURL: "https://www.secure-direct-hotel-booking.com/module_booking_engine/index.php?id_etab=540835380b24ce9a38e47ab1436e5d11&langue=francais",
			TotalRooms: 8,
			Timezone:   timezone,
		},
	}
}

// LoadHotels reads and validates the hotels file at path. An empty path
// yields DefaultHotels. Hotels without a timezone get defaultTZ.
func LoadHotels(path, defaultTZ string) ([]model.HotelConfig, error) {
	if path == "" {
		hotels := DefaultHotels(defaultTZ)
		return hotels, validateHotels(hotels)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hotels file: %w", err)
	}
	return ParseHotels(data, defaultTZ)
}

// ParseHotels validates raw JSON against the hotels schema and decodes it.
func ParseHotels(data []byte, defaultTZ string) ([]model.HotelConfig, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hotels file is not valid JSON: %w", err)
	}
	if err := hotelsSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("hotels file: %w", err)
	}

	var hotels []model.HotelConfig
	if err := json.Unmarshal(data, &hotels); err != nil {
		return nil, fmt.Errorf("decode hotels file: %w", err)
	}
	for i := range hotels {
		if hotels[i].Timezone == "" {
			hotels[i].Timezone = defaultTZ
		}
	}
	return hotels, validateHotels(hotels)
}

func validateHotels(hotels []model.HotelConfig) error {
	seen := make(map[string]struct{}, len(hotels))
	for _, h := range hotels {
		if _, dup := seen[h.HotelID]; dup {
			return fmt.Errorf("duplicate hotel_id %q", h.HotelID)
		}
		seen[h.HotelID] = struct{}{}
		if _, err := model.ParseProvider(string(h.Provider)); err != nil {
			return fmt.Errorf("hotel %s: %w", h.HotelID, err)
		}
		if h.TotalRooms < 1 {
			return fmt.Errorf("hotel %s: total_rooms must be positive", h.HotelID)
		}
		if _, err := time.LoadLocation(h.Timezone); err != nil {
			return fmt.Errorf("hotel %s: invalid timezone %q: %w", h.HotelID, h.Timezone, err)
		}
	}
	return nil
}

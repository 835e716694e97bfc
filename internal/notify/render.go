package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// ist is the zone used for human-readable times in messages.
var ist = time.FixedZone("IST", 5*60*60+30*60)

// SOSDetails is what the emergency renderers need to know about a case.
type SOSDetails struct {
	OwnerName string
	Boat      string
	Location  geo.Point
	Message   string
	CreatedAt time.Time
}

// MapsURL links to the case position on a map.
func MapsURL(p geo.Point) string {
	return "https://maps.google.com/?q=" + formatCoord(p.Lat) + "," + formatCoord(p.Lon)
}

// SOSMessage renders the SMS sent to emergency contacts.
func SOSMessage(d SOSDetails) string {
	return "🚨 SOS EMERGENCY 🚨\n" +
		"    \n" +
		"Fisherman: " + d.OwnerName + "\n" +
		"Boat: " + d.Boat + "\n" +
		"Location: " + MapsURL(d.Location) + "\n" +
		"Message: " + d.Message + "\n" +
		"\n" +
		"Please respond immediately!\n" +
		"Uyir Kavalan Emergency System"
}

// AuthorityMessage renders the SMS sent to coast guard and marine police.
func AuthorityMessage(d SOSDetails) string {
	return fmt.Sprintf("SOS Alert: Boat %s (%s) at %s,%s",
		d.Boat, d.OwnerName, formatCoord(d.Location.Lat), formatCoord(d.Location.Lon))
}

var sosEmailTemplate = template.Must(template.New("sos").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #dc3545; color: white; padding: 20px; text-align: center;">
    <h1>🚨 SOS EMERGENCY ALERT 🚨</h1>
  </div>
  <div style="padding: 20px; background-color: #f8f9fa;">
    <h2>Emergency Details</h2>
    <p><strong>Fisherman:</strong> {{.OwnerName}}</p>
    <p><strong>Boat Number:</strong> {{.Boat}}</p>
    <p><strong>Location:</strong> <a href="{{.MapsURL}}">View on Map</a></p>
    <p><strong>Coordinates:</strong> {{.Lat}}, {{.Lon}}</p>
    <p><strong>Message:</strong> {{.Message}}</p>
    <p><strong>Time:</strong> {{.Time}}</p>
    <div style="background-color: #fff3cd; border: 1px solid #ffeaa7; padding: 15px; margin: 20px 0; border-radius: 5px;">
      <h3>⚠️ IMMEDIATE ACTION REQUIRED</h3>
      <p>Please contact the fisherman immediately and verify their safety.</p>
    </div>
    <p>This is an automated emergency alert from the Uyir Kavalan Fishermen Safety System.</p>
  </div>
</div>
`))

// SOSEmail renders the email sent to emergency contacts.
func SOSEmail(d SOSDetails) (Email, error) {
	url := MapsURL(d.Location)
	when := formatTime(d.CreatedAt)

	var html bytes.Buffer
	err := sosEmailTemplate.Execute(&html, map[string]string{
		"OwnerName": d.OwnerName,
		"Boat":      d.Boat,
		"MapsURL":   url,
		"Lat":       formatCoord(d.Location.Lat),
		"Lon":       formatCoord(d.Location.Lon),
		"Message":   d.Message,
		"Time":      when,
	})
	if err != nil {
		return Email{}, fmt.Errorf("rendering sos email: %w", err)
	}

	return Email{
		Subject: "🚨 SOS Emergency Alert - Boat " + d.Boat,
		HTML:    html.String(),
		Text: "SOS EMERGENCY ALERT\n\n" +
			"Fisherman: " + d.OwnerName + "\n" +
			"Boat: " + d.Boat + "\n" +
			"Location: " + url + "\n" +
			"Message: " + d.Message + "\n" +
			"Time: " + when + "\n\n" +
			"Please respond immediately!",
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	return t.In(ist).Format("02/01/2006, 15:04:05 MST")
}

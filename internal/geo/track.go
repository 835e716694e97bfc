package geo

import (
	"errors"
	"math"
)

// ErrMalformedTrack is returned when an encoded track ends mid-value.
var ErrMalformedTrack = errors.New("malformed encoded track")

// trackPrecision is five decimal places, about a metre at the equator.
const trackPrecision = 1e5

// EncodeTrack packs points into the Google encoded polyline format. A day of
// position fixes shrinks to a few hundred bytes, which matters on a boat's
// metered satellite or radio link.
func EncodeTrack(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int
	for _, p := range points {
		lat := int(math.Round(p.Lat * trackPrecision))
		lon := int(math.Round(p.Lon * trackPrecision))
		buf = appendTrackValue(buf, lat-prevLat)
		buf = appendTrackValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

// DecodeTrack is the inverse of EncodeTrack.
func DecodeTrack(encoded string) ([]Point, error) {
	var (
		points   []Point
		lat, lon int
		i        int
	)
	for i < len(encoded) {
		dLat, next, ok := readTrackValue(encoded, i)
		if !ok {
			return nil, ErrMalformedTrack
		}
		dLon, next, ok := readTrackValue(encoded, next)
		if !ok {
			return nil, ErrMalformedTrack
		}
		i = next

		lat += dLat
		lon += dLon
		points = append(points, Point{Lat: float64(lat) / trackPrecision, Lon: float64(lon) / trackPrecision})
	}
	return points, nil
}

// TrackLength is the great-circle length of the track in kilometres.
func TrackLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

func appendTrackValue(buf []byte, v int) []byte {
	// Zigzag so the sign lands in the low bit.
	if v < 0 {
		v = ^(v << 1)
	} else {
		v <<= 1
	}
	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

func readTrackValue(s string, i int) (value, next int, ok bool) {
	var result, shift int
	for i < len(s) {
		b := int(s[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i, true
			}
			return result >> 1, i, true
		}
	}
	return 0, i, false
}

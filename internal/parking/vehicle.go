package parking

import "strings"

type VehicleType string

const (
	VehicleBike  VehicleType = "Bike"
	VehicleCar   VehicleType = "Car"
	VehicleTruck VehicleType = "Truck"
)

var vehicleTypes = []VehicleType{VehicleBike, VehicleCar, VehicleTruck}

// ParseVehicleType matches case-insensitively against the known types. Unknown
// names are kept as given; pricing falls back to the rate table's default entry.
func ParseVehicleType(s string) VehicleType {
	s = strings.TrimSpace(s)
	for _, vt := range vehicleTypes {
		if strings.EqualFold(s, string(vt)) {
			return vt
		}
	}
	return VehicleType(s)
}

// Known reports whether vt is one of Bike, Car or Truck.
func (vt VehicleType) Known() bool {
	for _, k := range vehicleTypes {
		if vt == k {
			return true
		}
	}
	return false
}

type Vehicle struct {
	Type   VehicleType
	Number string
}

func NewVehicle(vehicleType VehicleType, number string) Vehicle {
	return Vehicle{
		Type:   vehicleType,
		Number: NormalizeVehicleNumber(number),
	}
}

func NormalizeVehicleNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

package parking

import "testing"

func TestNewVehicle(t *testing.T) {
	vehicle := NewVehicle(VehicleCar, "  mh01ab1234 ")

	if vehicle.Number != "MH01AB1234" {
		t.Errorf("Expected vehicle number MH01AB1234, got %s", vehicle.Number)
	}

	if vehicle.Type != VehicleCar {
		t.Errorf("Expected vehicle type Car, got %s", vehicle.Type)
	}
}

func TestParseVehicleType(t *testing.T) {
	cases := map[string]VehicleType{
		"bike":    VehicleBike,
		"CAR":     VehicleCar,
		" Truck ": VehicleTruck,
		"Bus":     VehicleType("Bus"),
	}
	for in, want := range cases {
		if got := ParseVehicleType(in); got != want {
			t.Errorf("ParseVehicleType(%q) = %q, want %q", in, got, want)
		}
	}

	if VehicleType("Bus").Known() {
		t.Error("Expected Bus to be an unknown vehicle type")
	}
	if !VehicleTruck.Known() {
		t.Error("Expected Truck to be a known vehicle type")
	}
}

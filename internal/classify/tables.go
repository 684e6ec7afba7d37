package classify

// Gray is the fallback shared by the water risk tables.
var Gray = RGB(220, 220, 220)

// WaterStress buckets the ratio of withdrawals to available supply.
var WaterStress = NewTable("water_stress", Gray,
	Rule{Label: "No data", Color: RGB(78, 78, 78)},
	Rule{Label: "Arid and low water use", Color: RGB(128, 128, 128)},
	Rule{Label: "Low (<10%)", Color: RGB(255, 255, 153)},
	Rule{Label: "Low-medium (10-20%)", Color: RGB(255, 230, 0)},
	Rule{Label: "Medium-high (20-40%)", Color: RGB(255, 153, 0)},
	Rule{Label: "High (40-80%)", Color: RGB(255, 25, 0)},
	Rule{Label: "Extremely high (>80%)", Color: RGB(153, 0, 0)},
)

// WaterSupply buckets the projected change in available water depth.
var WaterSupply = NewTable("water_supply", Gray,
	Rule{Label: "No data", Color: RGB(78, 78, 78)},
	Rule{Label: "< 1 cm", Color: RGB(176, 196, 222)},
	Rule{Label: "1-3 cm", Color: RGB(173, 216, 230)},
	Rule{Label: "3-10 cm", Color: RGB(176, 224, 230)},
	Rule{Label: "10-30 cm", Color: RGB(135, 206, 235)},
	Rule{Label: "30-100 cm", Color: RGB(66, 191, 255)},
	Rule{Label: "100-300 cm", Color: RGB(53, 144, 255)},
	Rule{Label: "300-1000 cm", Color: RGB(65, 105, 255)},
	Rule{Label: ">1000 cm", Color: RGB(32, 0, 255)},
)

// BlueZone is the translucent fill used for zone polygons.
var BlueZone = Solid("blue_zone", RGBA(0, 0, 255, 77))

// Builtin returns the tables that ship with the binary, keyed by name.
func Builtin() map[string]Table {
	return map[string]Table{
		WaterStress.Name(): WaterStress,
		WaterSupply.Name(): WaterSupply,
		BlueZone.Name():    BlueZone,
	}
}

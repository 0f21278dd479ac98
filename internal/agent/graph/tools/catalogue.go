package tools

import (
	"sort"

	"github.com/catalogue-assistant/server/internal/agent/model"
)

// Catalogue categories.
const (
	CategoryPipes      = "pipes"
	CategoryFasteners  = "fasteners"
	CategoryWireMesh   = "wire-mesh"
	CategorySheets     = "sheets"
	CategoryFlanges    = "flanges"
	CategoryFittings   = "fittings"
	CategoryRoundBars  = "round-bars"
	CategoryStructural = "structural"
)

var CatalogueProducts = []model.Product{
	{
		ID:          "rx-pipe-001",
		Name:        "Seamless Carbon Steel Pipe",
		Category:    CategoryPipes,
		Description: "Hot-finished seamless pipe for high-temperature and high-pressure service in refineries and power plants",
		Grades:      []string{"Grade B", "Grade C"},
		Standards:   []string{"ASTM A106", "ASME SA106", "API 5L"},
		InStock:     true,
	},
	{
		ID:          "rx-pipe-002",
		Name:        "Stainless Steel Welded Pipe",
		Category:    CategoryPipes,
		Description: "ERW and EFW stainless pipe with high corrosion resistance for chemical and food processing lines",
		Grades:      []string{"SS 304", "SS 304L", "SS 316", "SS 316L"},
		Standards:   []string{"ASTM A312", "ASTM A358"},
		InStock:     true,
	},
	{
		ID:          "rx-pipe-003",
		Name:        "Duplex Steel Seamless Pipe",
		Category:    CategoryPipes,
		Description: "Duplex and super duplex pipe for offshore, desalination and chloride-rich environments",
		Grades:      []string{"UNS S31803", "UNS S32205", "UNS S32750"},
		Standards:   []string{"ASTM A790"},
		InStock:     false,
	},
	{
		ID:          "rx-fast-001",
		Name:        "SS 316 Hex Bolts",
		Category:    CategoryFasteners,
		Description: "Molybdenum-bearing stainless hex bolts resisting pitting and crevice corrosion in marine and chemical plants",
		Grades:      []string{"SS 316", "A4-70", "A4-80"},
		Standards:   []string{"ASTM A193 B8M", "ISO 4014", "DIN 931"},
		InStock:     true,
	},
	{
		ID:          "rx-fast-002",
		Name:        "High Tensile Stud Bolts",
		Category:    CategoryFasteners,
		Description: "Fully threaded alloy steel stud bolts with heavy hex nuts for flange connections",
		Grades:      []string{"B7", "B16", "L7"},
		Standards:   []string{"ASTM A193", "ASTM A194 2H", "ASME B16.5"},
		InStock:     true,
	},
	{
		ID:          "rx-mesh-001",
		Name:        "Stainless Steel Woven Wire Mesh",
		Category:    CategoryWireMesh,
		Description: "Plain and twill weave wire mesh for filtration, sieving and architectural screens",
		Grades:      []string{"SS 304", "SS 316"},
		Standards:   []string{"ASTM E2016"},
		InStock:     true,
	},
	{
		ID:          "rx-mesh-002",
		Name:        "Galvanized Welded Wire Mesh",
		Category:    CategoryWireMesh,
		Description: "Hot-dip galvanized welded mesh panels and rolls for fencing, reinforcement and cages",
		Grades:      []string{"Low carbon steel"},
		Standards:   []string{"ASTM A185"},
		InStock:     true,
	},
	{
		ID:          "rx-sheet-001",
		Name:        "Stainless Steel Sheets and Plates",
		Category:    CategorySheets,
		Description: "Cold-rolled sheets and hot-rolled plates in 2B, BA and No.4 finishes",
		Grades:      []string{"SS 304", "SS 316L", "SS 310S", "SS 321"},
		Standards:   []string{"ASTM A240"},
		InStock:     true,
	},
	{
		ID:          "rx-flange-001",
		Name:        "Weld Neck Flanges",
		Category:    CategoryFlanges,
		Description: "Forged weld neck flanges for high-pressure piping in carbon, alloy and stainless steel",
		Grades:      []string{"A105", "F304", "F316L", "F51"},
		Standards:   []string{"ASME B16.5", "ASME B16.47"},
		InStock:     true,
	},
	{
		ID:          "rx-fit-001",
		Name:        "Buttweld Pipe Fittings",
		Category:    CategoryFittings,
		Description: "Elbows, tees, reducers and caps for welded pipelines",
		Grades:      []string{"WPB", "WP304", "WP316L"},
		Standards:   []string{"ASME B16.9", "ASTM A234", "ASTM A403"},
		InStock:     true,
	},
	{
		ID:          "rx-bar-001",
		Name:        "Stainless Steel Round Bars",
		Category:    CategoryRoundBars,
		Description: "Bright and black round bars for shafts, fasteners and machined components",
		Grades:      []string{"SS 303", "SS 304", "SS 316", "SS 410"},
		Standards:   []string{"ASTM A276", "ASTM A479"},
		InStock:     true,
	},
	{
		ID:          "rx-struct-001",
		Name:        "Structural Steel Beams",
		Category:    CategoryStructural,
		Description: "Hot-rolled I-beams and H-beams for construction and heavy fabrication",
		Grades:      []string{"S275JR", "S355JR", "A992"},
		Standards:   []string{"EN 10025", "ASTM A6"},
		InStock:     false,
	},
}

var CatalogueDetails = map[string]model.ProductDetails{
	"rx-pipe-001": {
		Product: CatalogueProducts[0],
		Specifications: map[string]string{
			"outer_diameter": "1/2 inch to 24 inch",
			"wall_thickness": "SCH 10 to XXS",
			"length":         "Single random, double random, cut length",
			"ends":           "Plain, bevelled, threaded",
			"testing":        "Hydrostatic, ultrasonic, eddy current",
		},
		Applications: []string{"Refineries", "Boilers", "Steam lines", "Oil and gas transmission"},
	},
	"rx-pipe-002": {
		Product: CatalogueProducts[1],
		Specifications: map[string]string{
			"outer_diameter": "1/8 inch to 48 inch",
			"wall_thickness": "SCH 5S to SCH 80S",
			"finish":         "Annealed and pickled, polished",
			"testing":        "Hydrostatic, PMI, intergranular corrosion",
		},
		Applications: []string{"Chemical processing", "Food and beverage", "Pharmaceutical lines"},
	},
	"rx-fast-001": {
		Product: CatalogueProducts[3],
		Specifications: map[string]string{
			"size_range":    "M6 to M64",
			"thread":        "Metric coarse, UNC, UNF",
			"tensile":       "700 to 800 MPa",
			"molybdenum":    "2 to 3 percent",
			"certification": "EN 10204 3.1 mill test certificate",
		},
		Applications: []string{"Marine hardware", "Chemical plants", "Offshore platforms"},
	},
	"rx-mesh-001": {
		Product: CatalogueProducts[5],
		Specifications: map[string]string{
			"mesh_count": "2 to 500 mesh",
			"wire_dia":   "0.025 mm to 2 mm",
			"width":      "up to 2 m",
			"weave":      "Plain, twill, Dutch",
		},
		Applications: []string{"Filtration", "Sieving", "Architectural screens"},
	},
	"rx-flange-001": {
		Product: CatalogueProducts[8],
		Specifications: map[string]string{
			"size_range":     "1/2 inch to 60 inch",
			"pressure_class": "150 to 2500",
			"facing":         "RF, FF, RTJ",
		},
		Applications: []string{"High-pressure piping", "Process plants"},
	},
}

// Categories returns the distinct catalogue categories, sorted.
func Categories() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range CatalogueProducts {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

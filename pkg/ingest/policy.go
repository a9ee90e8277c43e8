package ingest

import (
	"fmt"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/dicom"
)

// Exam types known to the pipeline.
const (
	TypeCarotidIntima        = "CarotidIntima"
	TypePlaque               = "Plaque"
	TypeWholeBodyBoneDensity = "WholeBodyBoneDensity"
	TypeDualHipBoneDensity   = "DualHipBoneDensity"
	TypeForearmBoneDensity   = "ForearmBoneDensity"
	TypeLateralBoneDensity   = "LateralBoneDensity"
	TypeRetinalScan          = "RetinalScan"
)

// Remote locations of participant metadata.
const (
	ParticipantSource = "clsa-dcs"
	ParticipantTable  = "Participants"
	ImageSource       = "clsa-dcs-images"

	VisitDateVariable = "Admin.Interview.startDate"
	SiteVariable      = "Admin.ApplicationConfiguration.siteName"
)

// StageVariable names a per-stage field of the participant row, e.g.
// "Admin.StageInstance.CarotidIntima.status".
func StageVariable(stage, field string) string {
	return fmt.Sprintf("Admin.StageInstance.%s.%s", stage, field)
}

// Role tells the parenting step how an acquisition relates to the others.
type Role int

const (
	RoleNone Role = iota
	RoleCineloop
	RoleStill
)

// Parenting selects the post-processing that links acquisitions.
type Parenting int

const (
	ParentNone Parenting = iota
	// ParentByAcquisitionTime parents the still image to the cineloop
	// recorded at the same time.
	ParentByAcquisitionTime
	// ParentToFirst parents every later acquisition to the first one.
	ParentToFirst
)

// Acquisition is one remote variable downloaded into one Image row.
type Acquisition struct {
	Variable string
	Index    int64
	Suffix   string
	Role     Role
}

// Policy is the per exam type description of where images live and what
// happens to them after download.
type Policy struct {
	Type     string
	Modality string
	Table    string

	// SideVariable lists the side of every element of a repeated
	// variable. Empty when the exam has no laterality.
	SideVariable string
	Lateralities []string

	Acquisitions []Acquisition
	Parenting    Parenting

	// Clean is the redaction applied once the files are on disk.
	Clean CleanKind
	// HologicSubtype selects the name-field layout for CleanHologic.
	HologicSubtype string
	// DeriveLaterality takes the exam side from the DICOM header.
	DeriveLaterality bool
}

// CleanKind is the de-identification applied to an exam's files.
type CleanKind int

const (
	CleanNone CleanKind = iota
	CleanAnonymize
	CleanHologic
)

var bothSides = []string{models.LateralityLeft, models.LateralityRight}

var noSide = []string{models.LateralityNone}

var policies = map[string]Policy{
	TypeCarotidIntima: {
		Type:         TypeCarotidIntima,
		Modality:     models.ModalityUltrasound,
		Table:        "CarotidIntima",
		SideVariable: "Measure.SIDE",
		Lateralities: bothSides,
		Acquisitions: []Acquisition{
			{Variable: "Measure.CINELOOP_1", Index: 1, Suffix: ".dcm.gz", Role: RoleCineloop},
			{Variable: "Measure.CINELOOP_2", Index: 2, Suffix: ".dcm.gz", Role: RoleCineloop},
			{Variable: "Measure.CINELOOP_3", Index: 3, Suffix: ".dcm.gz", Role: RoleCineloop},
			{Variable: "Measure.STILL_IMAGE", Index: 4, Suffix: ".dcm.gz", Role: RoleStill},
		},
		Parenting: ParentByAcquisitionTime,
		Clean:     CleanAnonymize,
	},
	TypePlaque: {
		Type:         TypePlaque,
		Modality:     models.ModalityUltrasound,
		Table:        "Plaque",
		SideVariable: "Measure.SIDE",
		Lateralities: bothSides,
		Acquisitions: []Acquisition{
			{Variable: "Measure.CINELOOP_1", Index: 1, Suffix: ".dcm.gz", Role: RoleCineloop},
		},
		Clean: CleanAnonymize,
	},
	TypeWholeBodyBoneDensity: {
		Type:         TypeWholeBodyBoneDensity,
		Modality:     models.ModalityDexa,
		Table:        "WholeBodyBoneDensity",
		Lateralities: noSide,
		Acquisitions: []Acquisition{
			{Variable: "RES_WB_DICOM_1", Index: 1, Suffix: ".dcm"},
			{Variable: "RES_WB_DICOM_2", Index: 2, Suffix: ".dcm"},
		},
		Parenting:      ParentToFirst,
		Clean:          CleanHologic,
		HologicSubtype: dicom.SubtypeWholeBody,
	},
	TypeDualHipBoneDensity: {
		Type:         TypeDualHipBoneDensity,
		Modality:     models.ModalityDexa,
		Table:        "DualHipBoneDensity",
		SideVariable: "OUTPUT_HIP_SIDE",
		Lateralities: bothSides,
		Acquisitions: []Acquisition{
			{Variable: "RES_HIP_DICOM", Index: 1, Suffix: ".dcm"},
		},
		Clean:          CleanHologic,
		HologicSubtype: dicom.SubtypeHip,
	},
	TypeForearmBoneDensity: {
		Type:         TypeForearmBoneDensity,
		Modality:     models.ModalityDexa,
		Table:        "ForearmBoneDensity",
		Lateralities: noSide,
		Acquisitions: []Acquisition{
			{Variable: "RES_FA_DICOM", Index: 1, Suffix: ".dcm"},
		},
		Clean:            CleanHologic,
		HologicSubtype:   dicom.SubtypeForearm,
		DeriveLaterality: true,
	},
	TypeLateralBoneDensity: {
		Type:         TypeLateralBoneDensity,
		Modality:     models.ModalityDexa,
		Table:        "LateralBoneDensity",
		Lateralities: noSide,
		Acquisitions: []Acquisition{
			{Variable: "RES_SEL_DICOM_MEASURE", Index: 1, Suffix: ".dcm"},
		},
		Clean:          CleanHologic,
		HologicSubtype: dicom.SubtypeLateral,
	},
	TypeRetinalScan: {
		Type:         TypeRetinalScan,
		Modality:     models.ModalityRetinal,
		Table:        "RetinalScan",
		SideVariable: "Measure.SIDE",
		Lateralities: bothSides,
		Acquisitions: []Acquisition{
			{Variable: "Measure.EYE", Index: 1, Suffix: ".jpg"},
		},
	},
}

// PolicyFor returns the policy of an exam type.
func PolicyFor(examType string) (Policy, bool) {
	p, ok := policies[examType]
	return p, ok
}

// Policies lists every policy in a stable order.
func Policies() []Policy {
	out := make([]Policy, 0, len(policies))
	for _, t := range []string{
		TypeCarotidIntima, TypePlaque,
		TypeWholeBodyBoneDensity, TypeDualHipBoneDensity, TypeForearmBoneDensity, TypeLateralBoneDensity,
		TypeRetinalScan,
	} {
		out = append(out, policies[t])
	}
	return out
}

// DexaTypes lists the exam types cleaned by the DEXA batch tool.
func DexaTypes() []string {
	var types []string
	for _, p := range Policies() {
		if p.Modality == models.ModalityDexa {
			types = append(types, p.Type)
		}
	}
	return types
}

// IsDICOM reports whether the policy downloads DICOM files.
func (p Policy) IsDICOM() bool {
	for _, a := range p.Acquisitions {
		if a.Suffix != ".jpg" {
			return true
		}
	}
	return false
}

// FileSuffix is the suffix of an exam type's files once validated.
func FileSuffix(examType string) string {
	if p, ok := PolicyFor(examType); ok && !p.IsDICOM() {
		return ".jpg"
	}
	return ".dcm"
}

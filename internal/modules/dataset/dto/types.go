package dto

type AddSampleInput struct {
	Label   string
	Payload string
}

type AddSampleOutput struct {
	Label string
	Count int
}

type CategoryOutput struct {
	Label string
	Count int
}

type PreviewInput struct {
	Label string
	Limit int
}

type PreviewOutput struct {
	Label    string
	Total    int
	Payloads []string
}

type ImportInput struct {
	Data []byte
}

type ImportOutput struct {
	Categories int
	Samples    int
}

type ExportOutput struct {
	Data []byte
}

type CategorySamples struct {
	Label    string
	Payloads []string
}

// SnapshotOutput lists the non-empty categories in index order.
type SnapshotOutput struct {
	Categories []CategorySamples
}

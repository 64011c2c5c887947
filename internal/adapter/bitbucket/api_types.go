package bitbucket

// Bitbucket Cloud API 2.0 response shapes.
// See: https://developer.atlassian.com/cloud/bitbucket/rest/

// apiEnvelope is the paginated envelope Bitbucket wraps every list
// response in. Next and Previous are full URLs to the adjacent pages.
type apiEnvelope[T any] struct {
	Size     int    `json:"size"`
	Page     int    `json:"page"`
	PageLen  int    `json:"pagelen"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Values   []T    `json:"values"`
}

type apiAccount struct {
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname"`
}

type apiBranch struct {
	Name string `json:"name"`
}

type apiEndpoint struct {
	Branch apiBranch `json:"branch"`
}

type apiLink struct {
	Href string `json:"href"`
}

type apiLinks struct {
	HTML apiLink `json:"html"`
}

// apiParticipant carries the approval flag; Bitbucket's top-level
// reviewers list does not.
type apiParticipant struct {
	User     apiAccount `json:"user"`
	Role     string     `json:"role"`
	Approved bool       `json:"approved"`
}

type apiPullRequest struct {
	ID           int              `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	State        string           `json:"state"`
	Author       apiAccount       `json:"author"`
	CreatedOn    string           `json:"created_on"`
	UpdatedOn    string           `json:"updated_on"`
	Source       apiEndpoint      `json:"source"`
	Destination  apiEndpoint      `json:"destination"`
	Links        apiLinks         `json:"links"`
	Participants []apiParticipant `json:"participants"`
}

type apiCommitAuthor struct {
	Raw  string     `json:"raw"`
	User apiAccount `json:"user"`
}

type apiCommit struct {
	Hash    string          `json:"hash"`
	Message string          `json:"message"`
	Date    string          `json:"date"`
	Author  apiCommitAuthor `json:"author"`
}

type apiRendered struct {
	Raw string `json:"raw"`
}

// apiInline is present only on inline comments. From and To may each be
// null depending on which side of the diff the comment anchors to.
type apiInline struct {
	Path string `json:"path"`
	From int    `json:"from,omitempty"`
	To   int    `json:"to,omitempty"`
}

type apiComment struct {
	ID        int         `json:"id"`
	Content   apiRendered `json:"content"`
	User      apiAccount  `json:"user"`
	CreatedOn string      `json:"created_on"`
	UpdatedOn string      `json:"updated_on"`
	Inline    *apiInline  `json:"inline"`
	Links     apiLinks    `json:"links"`
	Deleted   bool        `json:"deleted"`
}

// createCommentRequest is the minimal payload Bitbucket requires to
// create a comment. Inline is set only for inline comments.
type createCommentRequest struct {
	Content apiRendered `json:"content"`
	Inline  *apiInline  `json:"inline,omitempty"`
}

type apiPipelineStateResult struct {
	Name string `json:"name"`
}

// apiPipelineState is Bitbucket's two-level pipeline state: the outer
// name is PENDING, IN_PROGRESS, or COMPLETED, and Result is set once the
// run completed.
type apiPipelineState struct {
	Name   string                  `json:"name"`
	Result *apiPipelineStateResult `json:"result"`
}

type apiPipelineTarget struct {
	RefName string     `json:"ref_name"`
	RefType string     `json:"ref_type"`
	Commit  *apiCommit `json:"commit"`
}

type apiPipelineTrigger struct {
	Name string `json:"name"`
}

type apiPipeline struct {
	UUID              string             `json:"uuid"`
	BuildNumber       int                `json:"build_number"`
	State             apiPipelineState   `json:"state"`
	CreatedOn         string             `json:"created_on"`
	CompletedOn       string             `json:"completed_on"`
	DurationInSeconds int                `json:"duration_in_seconds"`
	Target            apiPipelineTarget  `json:"target"`
	Trigger           apiPipelineTrigger `json:"trigger"`
}

// apiError is Bitbucket's error response body.
type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

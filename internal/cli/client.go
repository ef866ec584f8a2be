package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ProcessTypeResponse — шаблон процесса из API.
type ProcessTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IsActive    bool           `json:"is_active"`
	Steps       []StepResponse `json:"steps,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// StepResponse — шаг шаблона из API.
type StepResponse struct {
	ID                string `json:"id"`
	Order             int    `json:"order"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	RequireAttachment bool   `json:"require_attachment"`
	RequiresSignature bool   `json:"requires_signature"`
	SLAHours          int    `json:"sla_hours,omitempty"`
}

// InstanceResponse — экземпляр процесса из API.
type InstanceResponse struct {
	ID               string         `json:"id"`
	TypeID           string         `json:"type_id"`
	Code             string         `json:"code"`
	Status           string         `json:"status"`
	CurrentStepOrder int            `json:"current_step_order"`
	FormData         map[string]any `json:"form_data,omitempty"`
	CreatedByID      string         `json:"created_by_id"`
	CreatedAt        string         `json:"created_at"`
	CompletedAt      string         `json:"completed_at,omitempty"`
}

// StepExecutionResponse — выполнение шага из API.
type StepExecutionResponse struct {
	ID          string `json:"id"`
	InstanceID  string `json:"instance_id"`
	StepOrder   int    `json:"step_order"`
	Status      string `json:"status"`
	Action      string `json:"action,omitempty"`
	Comment     string `json:"comment,omitempty"`
	ExecutorID  string `json:"executor_id,omitempty"`
	DueAt       string `json:"due_at,omitempty"`
	SignedAt    string `json:"signed_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// InstanceDetailResponse — экземпляр вместе с выполнениями шагов.
type InstanceDetailResponse struct {
	Instance       InstanceResponse        `json:"instance"`
	StepExecutions []StepExecutionResponse `json:"step_executions"`
}

// AttachmentResponse — вложение из API.
type AttachmentResponse struct {
	ID              string `json:"id"`
	StepExecutionID string `json:"step_execution_id"`
	Filename        string `json:"filename"`
	CreatedAt       string `json:"created_at"`
}

// RequirementResponse — требование подписи из API.
type RequirementResponse struct {
	ID              string `json:"id"`
	StepExecutionID string `json:"step_execution_id"`
	AttachmentID    string `json:"attachment_id,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	SectorID        string `json:"sector_id,omitempty"`
	Order           int    `json:"order"`
	Type            string `json:"type"`
}

// SignResultResponse — результат подписания из API.
type SignResultResponse struct {
	Record struct {
		ID             string `json:"id"`
		RequirementID  string `json:"requirement_id"`
		SignerID       string `json:"signer_id"`
		Status         string `json:"status"`
		DocumentHash   string `json:"document_hash"`
		SignatureToken string `json:"signature_token"`
		SignedAt       string `json:"signed_at"`
	} `json:"record"`
	AllSigned  bool `json:"all_signed"`
	StepSigned bool `json:"step_signed"`
}

// ChildConfigResponse — конфигурация дочернего процесса из API.
type ChildConfigResponse struct {
	ID               string `json:"id"`
	ParentInstanceID string `json:"parent_instance_id"`
	ChildTypeID      string `json:"child_type_id"`
	Mode             string `json:"mode"`
	TriggerStepOrder int    `json:"trigger_step_order,omitempty"`
	Enabled          bool   `json:"enabled"`
	RunCount         int    `json:"run_count"`
	NextRunAt        string `json:"next_run_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// ChildEdgeResponse — связь родитель-потомок из API.
type ChildEdgeResponse struct {
	ID               string `json:"id"`
	ParentInstanceID string `json:"parent_instance_id"`
	ChildInstanceID  string `json:"child_instance_id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
}

// --- Request types ---

// CreateInstanceRequest — создание экземпляра.
type CreateInstanceRequest struct {
	CreatedByID string         `json:"created_by_id"`
	FormData    map[string]any `json:"form_data,omitempty"`
}

// ActorRequest — операция уровня экземпляра.
type ActorRequest struct {
	ActorID string `json:"actor_id"`
}

// ExecuteStepRequest — выполнение шага.
type ExecuteStepRequest struct {
	ActorID string `json:"actor_id"`
	Action  string `json:"action,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// CreateAttachmentRequest — регистрация вложения.
type CreateAttachmentRequest struct {
	Filename     string `json:"filename"`
	UploadedByID string `json:"uploaded_by_id"`
	Content      []byte `json:"content"`
}

// CreateRequirementRequest — создание требования подписи.
type CreateRequirementRequest struct {
	AttachmentID string `json:"attachment_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	SectorID     string `json:"sector_id,omitempty"`
	Order        int    `json:"order"`
	Type         string `json:"type,omitempty"`
}

// SignRequest — подписание требования.
type SignRequest struct {
	ActorID    string `json:"actor_id"`
	ActorName  string `json:"actor_name"`
	ActorEmail string `json:"actor_email"`
	Credential string `json:"credential"`
}

// CreateChildConfigRequest — создание конфигурации дочернего процесса.
type CreateChildConfigRequest struct {
	ChildTypeID       string            `json:"child_type_id"`
	Mode              string            `json:"mode"`
	TriggerStepOrder  int               `json:"trigger_step_order,omitempty"`
	InputDataMapping  map[string]string `json:"input_data_mapping,omitempty"`
	WaitForCompletion bool              `json:"wait_for_completion,omitempty"`
	Recurrence        json.RawMessage   `json:"recurrence,omitempty"`
}

// SpawnChildRequest — ручной запуск дочернего процесса.
type SpawnChildRequest struct {
	ActorID          string         `json:"actor_id"`
	OverrideFormData map[string]any `json:"override_form_data,omitempty"`
}

// ListInstancesOpts — параметры фильтрации экземпляров.
type ListInstancesOpts struct {
	Status    string
	TypeID    string
	CreatedBy string
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Processo API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Process types ---

// ListProcessTypes возвращает все шаблоны процессов.
func (c *Client) ListProcessTypes(onlyActive bool) ([]ProcessTypeResponse, error) {
	params := url.Values{}
	if onlyActive {
		params.Set("active", "true")
	}

	var types []ProcessTypeResponse
	err := c.list("/api/v1/process-types", params, &types)
	return types, err
}

// CreateProcessType создаёт шаблон процесса из JSON-описания.
func (c *Client) CreateProcessType(spec json.RawMessage) (*ProcessTypeResponse, error) {
	var pt ProcessTypeResponse
	err := c.doData(http.MethodPost, "/api/v1/process-types", spec, &pt)
	return &pt, err
}

// GetProcessType возвращает шаблон по ID.
func (c *Client) GetProcessType(id string) (*ProcessTypeResponse, error) {
	var pt ProcessTypeResponse
	err := c.get("/api/v1/process-types/"+id, &pt)
	return &pt, err
}

// ListTypeSteps возвращает шаги шаблона.
func (c *Client) ListTypeSteps(typeID string) ([]StepResponse, error) {
	var steps []StepResponse
	err := c.list("/api/v1/process-types/"+typeID+"/steps", nil, &steps)
	return steps, err
}

// --- Instances ---

// ListInstances возвращает экземпляры с фильтрацией.
func (c *Client) ListInstances(opts ListInstancesOpts) ([]InstanceResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.TypeID != "" {
		params.Set("type_id", opts.TypeID)
	}
	if opts.CreatedBy != "" {
		params.Set("created_by", opts.CreatedBy)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var instances []InstanceResponse
	err := c.list("/api/v1/instances", params, &instances)
	return instances, err
}

// CreateInstance создаёт экземпляр процесса.
func (c *Client) CreateInstance(typeID string, req CreateInstanceRequest) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/process-types/"+typeID+"/instances", req, &inst)
	return &inst, err
}

// GetInstance возвращает экземпляр вместе с шагами.
func (c *Client) GetInstance(id string) (*InstanceDetailResponse, error) {
	var detail InstanceDetailResponse
	err := c.get("/api/v1/instances/"+id, &detail)
	return &detail, err
}

// CancelInstance отменяет экземпляр.
func (c *Client) CancelInstance(id, actorID string) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/instances/"+id+"/cancel", ActorRequest{ActorID: actorID}, &inst)
	return &inst, err
}

// --- Step executions ---

// ExecuteStep выполняет активный шаг.
func (c *Client) ExecuteStep(execID string, req ExecuteStepRequest) (*StepExecutionResponse, error) {
	var exec StepExecutionResponse
	err := c.post("/api/v1/step-executions/"+execID+"/execute", req, &exec)
	return &exec, err
}

// CreateAttachment регистрирует вложение для шага.
func (c *Client) CreateAttachment(execID string, req CreateAttachmentRequest) (*AttachmentResponse, error) {
	var att AttachmentResponse
	err := c.post("/api/v1/step-executions/"+execID+"/attachments", req, &att)
	return &att, err
}

// ListRequirements возвращает требования подписи шага.
func (c *Client) ListRequirements(execID, attachmentID string) ([]RequirementResponse, error) {
	params := url.Values{}
	if attachmentID != "" {
		params.Set("attachment_id", attachmentID)
	}

	var reqs []RequirementResponse
	err := c.list("/api/v1/step-executions/"+execID+"/signature-requirements", params, &reqs)
	return reqs, err
}

// CreateRequirement создаёт требование подписи.
func (c *Client) CreateRequirement(execID string, req CreateRequirementRequest) (*RequirementResponse, error) {
	var created RequirementResponse
	err := c.post("/api/v1/step-executions/"+execID+"/signature-requirements", req, &created)
	return &created, err
}

// Sign подписывает требование.
func (c *Client) Sign(requirementID string, req SignRequest) (*SignResultResponse, error) {
	var result SignResultResponse
	err := c.post("/api/v1/signature-requirements/"+requirementID+"/sign", req, &result)
	return &result, err
}

// --- Child processes ---

// ListChildConfigs возвращает конфигурации дочерних процессов.
func (c *Client) ListChildConfigs(instanceID string) ([]ChildConfigResponse, error) {
	var configs []ChildConfigResponse
	err := c.list("/api/v1/instances/"+instanceID+"/child-configs", nil, &configs)
	return configs, err
}

// CreateChildConfig создаёт конфигурацию дочернего процесса.
func (c *Client) CreateChildConfig(instanceID string, req CreateChildConfigRequest) (*ChildConfigResponse, error) {
	var cfg ChildConfigResponse
	err := c.post("/api/v1/instances/"+instanceID+"/child-configs", req, &cfg)
	return &cfg, err
}

// ListChildren возвращает дочерние процессы экземпляра.
func (c *Client) ListChildren(instanceID string) ([]ChildEdgeResponse, error) {
	var edges []ChildEdgeResponse
	err := c.list("/api/v1/instances/"+instanceID+"/children", nil, &edges)
	return edges, err
}

// SpawnChild вручную запускает дочерний процесс по конфигурации.
func (c *Client) SpawnChild(configID string, req SpawnChildRequest) (*ChildEdgeResponse, error) {
	var edge ChildEdgeResponse
	err := c.post("/api/v1/child-configs/"+configID+"/spawn", req, &edge)
	return &edge, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
